package models

import (
	"encoding/json"
	"math"
	"strconv"
)

type valueState uint8

const (
	stateMissing valueState = iota
	stateNumber
	stateUndefined
)

// Value is a single cell of a series or table: a number, an explicit
// missing marker, or an undefined result (for example log of a negative).
// The zero Value is Missing, so freshly allocated columns start out empty.
type Value struct {
	f     float64
	state valueState
}

// Num wraps f. NaN and infinities are stored as Undefined.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{state: stateUndefined}
	}
	return Value{f: f, state: stateNumber}
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

// Undefined returns the marker for a computation with no numeric result.
func Undefined() Value { return Value{state: stateUndefined} }

// Float returns the number and whether the value holds one.
func (v Value) Float() (float64, bool) { return v.f, v.state == stateNumber }

func (v Value) IsNumber() bool { return v.state == stateNumber }
func (v Value) IsMissing() bool { return v.state == stateMissing }
func (v Value) IsUndefined() bool { return v.state == stateUndefined }

// OrNaN returns the number or NaN. Only for handing data to plotting or CSV consumers.
func (v Value) OrNaN() float64 {
	if v.state != stateNumber {
		return math.NaN()
	}
	return v.f
}

func (v Value) String() string {
	switch v.state {
	case stateNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case stateUndefined:
		return "undefined"
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers and anything else as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.state != stateNumber {
		return []byte("null"), nil
	}
	return json.Marshal(v.f)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var f *float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f == nil {
		*v = Missing()
		return nil
	}
	*v = Num(*f)
	return nil
}

// Numbers returns the numeric entries of vals, skipping missing and undefined cells.
func Numbers(vals []Value) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}
