// ABOUTME: Tri-typed Value for workout statistics and metadata fields.
// ABOUTME: Holds a number, boolean, or text plus the merge rule for duplicates.
package models

import (
	"encoding/json"
	"strconv"
)

// ValueKind discriminates the payload stored in a Value.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindText
)

// Value is one normalized metadata or statistic value. The export encodes
// booleans as unit-less "0"/"1", so the kind matters: a boolean must never
// collapse into the float 0.0/1.0.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Text string
}

// Number wraps a float as a Value.
func Number(v float64) Value {
	return Value{Kind: KindNumber, Num: v}
}

// Boolean wraps a bool as a Value.
func Boolean(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// Text wraps a string as a Value.
func Text(v string) Value {
	return Value{Kind: KindText, Text: v}
}

// IsNumber reports whether the value is numeric. Booleans are not numeric
// even though the source encodes them as digits.
func (v Value) IsNumber() bool {
	return v.Kind == KindNumber
}

// String renders the value for CSV cells and display.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Text
	}
}

// MarshalJSON emits the native JSON type for the payload.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Num)
	default:
		return json.Marshal(v.Text)
	}
}

// MergeValue resolves a field seen more than once in a single workout.
// Two numeric values accumulate; any other combination keeps the newer
// value. Booleans never accumulate. A reading repeated at the workout and
// activity level accumulates like any other duplicate.
func MergeValue(existing *Value, incoming Value) Value {
	if existing != nil && existing.IsNumber() && incoming.IsNumber() {
		return Number(existing.Num + incoming.Num)
	}
	return incoming
}
