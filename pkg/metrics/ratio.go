package metrics

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Ratio is a decimal that may be undefined. An undefined ratio is the NaN
// sentinel produced when dividing by zero conversions.
type Ratio struct {
	value decimal.Decimal
	valid bool
}

// NaN returns the undefined ratio.
func NaN() Ratio {
	return Ratio{}
}

// RatioOf wraps a defined decimal value.
func RatioOf(d decimal.Decimal) Ratio {
	return Ratio{value: d, valid: true}
}

func (r Ratio) IsNaN() bool {
	return !r.valid
}

// Decimal returns the value and false when the ratio is NaN.
func (r Ratio) Decimal() (decimal.Decimal, bool) {
	return r.value, r.valid
}

// Float64 returns the ratio as a float, math.NaN() when undefined.
func (r Ratio) Float64() float64 {
	if !r.valid {
		return math.NaN()
	}
	f, _ := r.value.Float64()
	return f
}

func (r Ratio) String() string {
	if !r.valid {
		return "NaN"
	}
	return r.value.String()
}

// MarshalJSON encodes a defined ratio as a JSON number and NaN as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.valid {
		return []byte("null"), nil
	}
	return json.Marshal(json.Number(r.value.String()))
}
