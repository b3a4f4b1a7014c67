// Package catalog maps human-readable series names to upstream codes and
// holds the preset stories and chart annotations that ship with crossasset.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/crossasset/pkg/models"
)

//go:embed catalog.yaml
var embedded []byte

// ErrUnknownSeries is returned when a name is not in the catalog.
var ErrUnknownSeries = errors.New("unknown series")

// Entry is one catalog row.
type Entry struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
}

// Story is a preset view of the data.
type Story struct {
	Name        string      `yaml:"name"        json:"name"`
	Description string      `yaml:"description" json:"description"`
	Range       string      `yaml:"range"       json:"range"` // "1y", "5y", "10y", "20y", "max" or "custom"
	Start       models.Date `yaml:"start"       json:"start,omitzero"`
	End         models.Date `yaml:"end"         json:"end,omitzero"`
	Mode        string      `yaml:"mode"        json:"mode"`
	Denominator string      `yaml:"denominator" json:"denominator"`
}

// Event is a dated chart annotation.
type Event struct {
	Date   models.Date `yaml:"date"   json:"date"`
	Label  string      `yaml:"label"  json:"label"`
	Detail string      `yaml:"detail" json:"detail,omitempty"`
	Source string      `yaml:"source" json:"source,omitempty"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Macro        []Entry  `yaml:"macro"        json:"macro"`
	Assets       []Entry  `yaml:"assets"       json:"assets"`
	Denominators []string `yaml:"denominators" json:"denominators"`
	Factors      []string `yaml:"factors"      json:"factors"`
	MoneySupply  string   `yaml:"money_supply" json:"money_supply"`
	Stories      []Story  `yaml:"stories"      json:"stories"`
	Events       []Event  `yaml:"events"       json:"events"`

	refs map[string]models.Ref
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.refs = make(map[string]models.Ref, len(c.Macro)+len(c.Assets))
	add := func(e Entry, kind models.Kind) error {
		if e.Name == "" || e.Code == "" {
			return fmt.Errorf("catalog entry %q needs a name and a code", e.Name)
		}
		if _, dup := c.refs[e.Name]; dup {
			return fmt.Errorf("duplicate catalog name %q", e.Name)
		}
		c.refs[e.Name] = models.Ref{Name: e.Name, Kind: kind, Code: e.Code}
		return nil
	}
	for _, e := range c.Macro {
		if err := add(e, models.Macro); err != nil {
			return nil, err
		}
	}
	for _, e := range c.Assets {
		if err := add(e, models.Asset); err != nil {
			return nil, err
		}
	}
	for _, name := range append(append([]string{}, c.Denominators...), c.Factors...) {
		if _, ok := c.refs[name]; !ok {
			return nil, fmt.Errorf("catalog references %q: %w", name, ErrUnknownSeries)
		}
	}
	sort.SliceStable(c.Events, func(i, j int) bool { return c.Events[i].Date.Before(c.Events[j].Date) })
	return &c, nil
}

// Resolve turns a display name into a typed reference.
func (c *Catalog) Resolve(name string) (models.Ref, error) {
	ref, ok := c.refs[name]
	if !ok {
		return models.Ref{}, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
	}
	return ref, nil
}

// ResolveAll resolves every name, failing on the first unknown one.
func (c *Catalog) ResolveAll(names []string) ([]models.Ref, error) {
	refs := make([]models.Ref, 0, len(names))
	for _, n := range names {
		ref, err := c.Resolve(n)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Names returns the names of one kind in catalog order.
func (c *Catalog) Names(kind models.Kind) []string {
	var entries []Entry
	switch kind {
	case models.Macro:
		entries = c.Macro
	case models.Asset:
		entries = c.Assets
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// Story looks a preset up by name.
func (c *Catalog) Story(name string) (Story, bool) {
	for _, s := range c.Stories {
		if s.Name == name {
			return s, true
		}
	}
	return Story{}, false
}

// EventsBetween returns the built-in events inside [from, to].
func (c *Catalog) EventsBetween(from, to models.Date) []Event {
	return FilterEvents(c.Events, from, to)
}

// FilterEvents keeps events inside [from, to]; zero bounds are open.
func FilterEvents(events []Event, from, to models.Date) []Event {
	var out []Event
	for _, e := range events {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
