package ranking

import "github.com/shopspring/decimal"

// Decay constants of the two-bucket composition: the current bucket carries
// 0.9 of its raw score, the previous bucket 0.1.
var (
	currentBucketFactor  = decimal.RequireFromString("0.9")
	previousBucketFactor = decimal.RequireFromString("0.1")
)

// BucketMetrics are the accumulated counters of one product in one bucket.
type BucketMetrics struct {
	Views       int64
	Likes       int64 // signed: likes minus cancellations
	OrderAmount decimal.Decimal
}

// Calculator applies a weight triple to bucket metrics. A job snapshots one
// Calculator at start so a concurrent weight update cannot split a run.
type Calculator struct {
	weights Weights
}

func NewCalculator(w Weights) Calculator {
	return Calculator{weights: w}
}

// RawScore is max(0, round(views*viewW + likes*likeW + orderAmount*orderW, 2)).
// The clamp handles a signed like count pushing the total below zero.
func (c Calculator) RawScore(m BucketMetrics) Score {
	total := c.weights.View.Mul(decimal.NewFromInt(m.Views)).
		Add(c.weights.Like.Mul(decimal.NewFromInt(m.Likes))).
		Add(c.weights.Order.Mul(m.OrderAmount))
	return ClampScore(total)
}

// Contribution is the single-row mode used by chunked jobs: a row in the
// current bucket contributes raw*0.9, any older row raw*0.1. The store-side
// ZINCRBY sums contributions per product.
func (c Calculator) Contribution(m BucketMetrics, current bool) Score {
	factor := previousBucketFactor
	if current {
		factor = currentBucketFactor
	}
	s, err := c.RawScore(m).Decay(factor)
	if err != nil {
		// Factors are package constants inside [0, 1]; unreachable.
		panic(err)
	}
	return s
}

// PairScore composes the current and previous buckets of one product:
// raw(current)*0.9 + raw(previous)*0.1. A missing side contributes zero.
func (c Calculator) PairScore(current, previous *BucketMetrics) Score {
	total := ZeroScore
	if current != nil {
		total = total.Add(c.Contribution(*current, true))
	}
	if previous != nil {
		total = total.Add(c.Contribution(*previous, false))
	}
	return total
}
