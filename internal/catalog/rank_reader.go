// Package catalog is the read side: rank lookups across all periods and
// the cached product detail/list composition.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

// LiveRankStore is the Redis-backed side (hourly, daily).
type LiveRankStore interface {
	Rank(ctx context.Context, liveKey string, productID int64) (*int64, error)
	TopN(ctx context.Context, liveKey string, page, size int) ([]rankstore.RankedEntry, bool, error)
}

// PeriodRankStore is the materialized side (weekly, monthly).
type PeriodRankStore interface {
	FindPeriodRank(ctx context.Context, p ranking.Period, baseDate time.Time, productID int64) (*repository.PeriodRank, error)
	ListPeriodRanks(ctx context.Context, p ranking.Period, baseDate time.Time, offset, limit int) ([]repository.PeriodRank, bool, error)
}

// RankedProduct is one ranking row in period-independent form.
type RankedProduct struct {
	Rank      int
	ProductID int64
	Score     decimal.Decimal
}

// RankReader serves rank lookups for every period behind one API: hourly
// and daily out of the live sorted sets, weekly and monthly out of the
// materialized tables.
type RankReader struct {
	live   LiveRankStore
	period PeriodRankStore
	now    func() time.Time
}

func NewRankReader(live LiveRankStore, period PeriodRankStore) *RankReader {
	return &RankReader{live: live, period: period, now: time.Now}
}

// FindRank returns a product's rank for the period, nil when unranked.
// Live periods resolve against the current bucket, materialized periods
// against today's KST base date.
func (r *RankReader) FindRank(ctx context.Context, p ranking.Period, productID int64) (*int64, error) {
	if p.Live() {
		key, err := ranking.CurrentBucketKey(p, r.now())
		if err != nil {
			return nil, err
		}
		return r.live.Rank(ctx, key, productID)
	}

	row, err := r.period.FindPeriodRank(ctx, p, ranking.KSTDate(r.now()), productID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	rank := int64(row.Rank)
	return &rank, nil
}

// CurrentRank is the hourly rank shown on the product detail page.
func (r *RankReader) CurrentRank(ctx context.Context, productID int64) (*int64, error) {
	return r.FindRank(ctx, ranking.PeriodHourly, productID)
}

// FindTopN returns one page of the period's ranking in rank order, plus
// whether more rows follow.
func (r *RankReader) FindTopN(ctx context.Context, p ranking.Period, page, size int) ([]RankedProduct, bool, error) {
	return r.FindTopNAt(ctx, p, r.now(), page, size)
}

// FindTopNAt is FindTopN pinned to an explicit base instant. Live periods
// resolve at's bucket; materialized periods use at's KST date.
func (r *RankReader) FindTopNAt(ctx context.Context, p ranking.Period, at time.Time, page, size int) ([]RankedProduct, bool, error) {
	if page < 0 || size < 1 {
		return nil, false, fmt.Errorf("invalid page %d size %d", page, size)
	}

	if p.Live() {
		key, err := ranking.CurrentBucketKey(p, at)
		if err != nil {
			return nil, false, err
		}
		entries, hasNext, err := r.live.TopN(ctx, key, page, size)
		if err != nil {
			return nil, false, err
		}
		out := make([]RankedProduct, len(entries))
		for i, e := range entries {
			out[i] = RankedProduct{
				Rank:      e.Rank,
				ProductID: e.ProductID,
				Score:     decimal.NewFromFloat(e.Score).Round(2),
			}
		}
		return out, hasNext, nil
	}

	rows, hasNext, err := r.period.ListPeriodRanks(ctx, p, ranking.KSTDate(at), page*size, size)
	if err != nil {
		return nil, false, err
	}
	out := make([]RankedProduct, len(rows))
	for i, row := range rows {
		out[i] = RankedProduct{Rank: row.Rank, ProductID: row.ProductID, Score: row.Score}
	}
	return out, hasNext, nil
}
