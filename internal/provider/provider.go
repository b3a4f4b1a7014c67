// Package provider defines the contract between the series fetcher and the
// upstream data sources, and a registry that routes a series reference to
// the source serving its kind.
package provider

import (
	"context"
	"fmt"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Info holds metadata about a source.
type Info struct {
	Name        string      `json:"name"`        // e.g., "fred", "yfinance"
	Description string      `json:"description"` // human-readable description
	Website     string      `json:"website"`
	Kind        models.Kind `json:"kind"` // series kind this source serves
}

// Range bounds a fetch. A zero From or To leaves that side open, so the
// zero Range asks for full history.
type Range struct {
	From models.Date `json:"from,omitzero"`
	To   models.Date `json:"to,omitzero"`
}

// Full is the open range.
var Full = Range{}

// IsFull reports whether both sides are open.
func (r Range) IsFull() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains reports whether d falls inside the range.
func (r Range) Contains(d models.Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

func (r Range) String() string {
	if r.IsFull() {
		return "max"
	}
	from, to := "", ""
	if !r.From.IsZero() {
		from = r.From.String()
	}
	if !r.To.IsZero() {
		to = r.To.String()
	}
	return from + ".." + to
}

// Source fetches one series from one upstream.
//
// Implementations return an error for transport and parse failures; the
// fetcher layer turns those into an empty series plus a warning.
type Source interface {
	// Info returns metadata about this source.
	Info() Info

	// Fetch retrieves the series for ref restricted to rng. Dates are
	// day-granular with no timezone; points are strictly increasing.
	Fetch(ctx context.Context, ref models.Ref, rng Range) (models.NamedSeries, error)
}

// ErrSourceNotFound is returned when no source is registered for a kind.
type ErrSourceNotFound struct {
	Kind models.Kind
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("no source registered for %s series", e.Kind)
}

// ErrKindMismatch is returned when a source is asked for a series of another kind.
type ErrKindMismatch struct {
	Source string
	Ref    models.Ref
}

func (e *ErrKindMismatch) Error() string {
	return fmt.Sprintf("source %q cannot fetch %s", e.Source, e.Ref)
}

// ErrEmptySeries is returned when an upstream answered but had no usable observations.
type ErrEmptySeries struct {
	Ref models.Ref
}

func (e *ErrEmptySeries) Error() string {
	return fmt.Sprintf("no observations for %s", e.Ref)
}
