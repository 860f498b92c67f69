package ranking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Weights is the (view, like, order) multiplier triple of the raw score
// formula. Each weight is a decimal in [0, 1] with scale 2.
type Weights struct {
	View  decimal.Decimal
	Like  decimal.Decimal
	Order decimal.Decimal
}

// DefaultWeights is the fallback used when no weight row exists.
func DefaultWeights() Weights {
	return Weights{
		View:  decimal.RequireFromString("0.10"),
		Like:  decimal.RequireFromString("0.20"),
		Order: decimal.RequireFromString("0.60"),
	}
}

// ParseWeights parses decimal strings and validates each weight is in [0, 1].
func ParseWeights(view, like, order string) (Weights, error) {
	parse := func(name, s string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%s weight %q is not a decimal", name, s)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Decimal{}, fmt.Errorf("%s weight %s must be in [0, 1]", name, d)
		}
		return d.Round(2), nil
	}

	v, err := parse("view", view)
	if err != nil {
		return Weights{}, err
	}
	l, err := parse("like", like)
	if err != nil {
		return Weights{}, err
	}
	o, err := parse("order", order)
	if err != nil {
		return Weights{}, err
	}
	return Weights{View: v, Like: l, Order: o}, nil
}
