package models

import (
	"fmt"
	"sort"
)

// Kind says which upstream a series comes from.
type Kind int

const (
	KindUnknown Kind = iota
	Macro            // macro-economic series keyed by a FRED code
	Asset            // traded asset keyed by a Yahoo ticker
)

func (k Kind) String() string {
	switch k {
	case Macro:
		return "macro"
	case Asset:
		return "asset"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "macro":
		*k = Macro
	case "asset":
		*k = Asset
	default:
		return fmt.Errorf("unknown series kind %q", string(b))
	}
	return nil
}

// Ref identifies a series by display name and upstream code.
// It is resolved once from the catalog and never re-derived from the name.
type Ref struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
	Code string `json:"code" yaml:"code"` // FRED code or ticker symbol
}

// MacroRef returns a Ref for a FRED series code.
func MacroRef(name, code string) Ref { return Ref{Name: name, Kind: Macro, Code: code} }

// AssetRef returns a Ref for a ticker symbol.
func AssetRef(name, ticker string) Ref { return Ref{Name: name, Kind: Asset, Code: ticker} }

func (r Ref) String() string { return fmt.Sprintf("%s(%s:%s)", r.Name, r.Kind, r.Code) }

// Point is one dated observation.
type Point struct {
	Date  Date  `json:"date"`
	Value Value `json:"value"`
}

// NamedSeries is a single column of observations. Points are in strictly
// increasing date order with no duplicates.
type NamedSeries struct {
	Ref
	Points []Point `json:"points"`
}

// NewSeries sorts points by date and collapses duplicate dates, keeping
// the last numeric observation seen for each day. A placeholder never
// replaces a number on the same day.
func NewSeries(ref Ref, points []Point) NamedSeries {
	ps := make([]Point, len(points))
	copy(ps, points)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Date.Before(ps[j].Date) })
	out := ps[:0]
	for _, p := range ps {
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			if p.Value.IsNumber() || !out[n-1].Value.IsNumber() {
				out[n-1] = p
			}
			continue
		}
		out = append(out, p)
	}
	return NamedSeries{Ref: ref, Points: out}
}

// Empty reports whether the series has no numeric observation at all.
func (s NamedSeries) Empty() bool {
	for _, p := range s.Points {
		if p.Value.IsNumber() {
			return false
		}
	}
	return true
}

// Len returns the number of points.
func (s NamedSeries) Len() int { return len(s.Points) }

// Validate checks the ordering invariant.
func (s NamedSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i-1].Date.Before(s.Points[i].Date) {
			return fmt.Errorf("series %s: date %s not after %s", s.Name, s.Points[i].Date, s.Points[i-1].Date)
		}
	}
	return nil
}

// Dates returns the observation dates.
func (s NamedSeries) Dates() []Date {
	out := make([]Date, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// AsOf returns the latest numeric observation at or before d.
func (s NamedSeries) AsOf(d Date) Value {
	// first index with date after d
	i := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(d) })
	for i--; i >= 0; i-- {
		if s.Points[i].Value.IsNumber() {
			return s.Points[i].Value
		}
	}
	return Missing()
}

// Clone returns a deep copy.
func (s NamedSeries) Clone() NamedSeries {
	ps := make([]Point, len(s.Points))
	copy(ps, s.Points)
	return NamedSeries{Ref: s.Ref, Points: ps}
}
