package rules

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Value is the result of a scalar rule. An undefined Value stands in for the
// not-a-number result of a degenerate ratio; it has no numeric rendering, so
// callers must check IsNaN or the ok result of Float64 before presenting it.
type Value struct {
	d       decimal.Decimal
	defined bool
}

// Defined wraps d as a defined value.
func Defined(d decimal.Decimal) Value {
	return Value{d: d, defined: true}
}

// Undefined returns the not-a-number value.
func Undefined() Value {
	return Value{}
}

// IsNaN reports whether v is undefined.
func (v Value) IsNaN() bool {
	return !v.defined
}

// Decimal returns the exact value and whether it is defined.
func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.d, v.defined
}

// Float64 returns v as a float. For an undefined value it returns NaN and false.
func (v Value) Float64() (float64, bool) {
	if !v.defined {
		return math.NaN(), false
	}
	f, _ := v.d.Float64()
	return f, true
}

// String renders the value with 2 decimal places, or "undefined".
func (v Value) String() string {
	if !v.defined {
		return "undefined"
	}
	return v.d.StringFixed(2)
}

// StringFixed renders the value with the given number of decimal places, or
// "undefined".
func (v Value) StringFixed(places int32) string {
	if !v.defined {
		return "undefined"
	}
	return v.d.StringFixed(places)
}

// MarshalJSON encodes a defined value as a JSON number and an undefined one as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.defined {
		return []byte("null"), nil
	}
	f, _ := v.d.Float64()
	return json.Marshal(f)
}
