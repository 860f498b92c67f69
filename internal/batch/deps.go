package batch

import (
	"context"
	"fmt"
	"time"

	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

// The jobs depend on narrow interfaces so tests can drive them with
// slice-backed fakes. *repository.Repository and *rankstore.Store satisfy
// all of them.

type HourlyMetricSource interface {
	HourlyMetricsBetween(ctx context.Context, from, to time.Time) (repository.HourlyMetricCursor, error)
}

type DailyMetricSource interface {
	DailyMetricsBetween(ctx context.Context, fromDate, toDate time.Time) (repository.DailyMetricCursor, error)
}

type DailyMetricWriter interface {
	UpsertDailyMetrics(ctx context.Context, statDate time.Time, rows []repository.DailyMetric) error
}

type WeightSource interface {
	LatestWeights(ctx context.Context) (ranking.Weights, bool, error)
}

type Publisher interface {
	BeginPublication(ctx context.Context, liveKey string) (rankstore.Publication, error)
}

type RankWriter interface {
	ReplacePeriodRanks(ctx context.Context, p ranking.Period, baseDate time.Time, rows []repository.PeriodRank) error
}

// snapshotCalculator reads the active weights once at job start. A weight
// update landing mid-run affects only the next run.
func snapshotCalculator(ctx context.Context, weights WeightSource) (ranking.Calculator, error) {
	w, ok, err := weights.LatestWeights(ctx)
	if err != nil {
		return ranking.Calculator{}, fmt.Errorf("load weights: %w", err)
	}
	if !ok {
		w = ranking.DefaultWeights()
	}
	return ranking.NewCalculator(w), nil
}

// publishChunk is how many entries a job buffers before handing them to
// the staging pipeline.
const publishChunk = 500

var _ Publisher = (*rankstore.Store)(nil)
