package ranking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// scoreScale is the fixed decimal scale of every score in the pipeline.
// Redis sorted-set scores are the only place this leaves fixed point.
const scoreScale = 2

// Score is a non-negative popularity score with scale-2, half-up rounding.
// The zero value is a valid zero score.
type Score struct {
	value decimal.Decimal
}

// ZeroScore is the shared zero constant.
var ZeroScore = Score{value: decimal.Zero}

// NewScore builds a Score from a decimal value. Negative values are rejected.
func NewScore(v decimal.Decimal) (Score, error) {
	if v.IsNegative() {
		return Score{}, fmt.Errorf("score must not be negative: %s", v)
	}
	return Score{value: v.Round(scoreScale)}, nil
}

// ClampScore rounds v to scale 2 and clamps negative results to zero.
// Used where a weighted sum may dip below zero from signed like deltas.
func ClampScore(v decimal.Decimal) Score {
	r := v.Round(scoreScale)
	if r.IsNegative() {
		return ZeroScore
	}
	return Score{value: r}
}

// Decay multiplies the score by a factor in [0, 1]. Factors outside the
// range are programming bugs and are rejected.
func (s Score) Decay(factor decimal.Decimal) (Score, error) {
	if factor.IsNegative() || factor.GreaterThan(decimal.NewFromInt(1)) {
		return Score{}, fmt.Errorf("decay factor must be in [0, 1]: %s", factor)
	}
	return Score{value: s.value.Mul(factor).Round(scoreScale)}, nil
}

// Add returns the sum of two scores. Non-negativity is closed under addition.
func (s Score) Add(other Score) Score {
	return Score{value: s.value.Add(other.value).Round(scoreScale)}
}

func (s Score) Decimal() decimal.Decimal {
	return s.value
}

// Float64 converts to the double representation used by Redis sorted sets.
func (s Score) Float64() float64 {
	f, _ := s.value.Float64()
	return f
}

func (s Score) Cmp(other Score) int {
	return s.value.Cmp(other.value)
}

func (s Score) IsZero() bool {
	return s.value.IsZero()
}

// String formats with exactly two decimal places.
func (s Score) String() string {
	return s.value.StringFixed(scoreScale)
}
