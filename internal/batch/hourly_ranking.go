package batch

import (
	"context"
	"fmt"
	"time"

	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

// HourlyRankingJob scores the current and previous hour buckets and
// publishes the hourly ranking sorted set. Rows stream through in chunks;
// a product present in both buckets gets its two contributions summed by
// the store's ZINCRBY semantics.
type HourlyRankingJob struct {
	metrics   HourlyMetricSource
	weights   WeightSource
	publisher Publisher
}

func NewHourlyRankingJob(metrics HourlyMetricSource, weights WeightSource, publisher Publisher) *HourlyRankingJob {
	return &HourlyRankingJob{metrics: metrics, weights: weights, publisher: publisher}
}

func (j *HourlyRankingJob) Name() string { return "hourlyRankingJob" }

func (j *HourlyRankingJob) Run(ctx context.Context, params Params) (int64, int64, error) {
	calc, err := snapshotCalculator(ctx, j.weights)
	if err != nil {
		return 0, 0, err
	}

	currentHour := params.BaseDateTime.In(ranking.KST()).Truncate(time.Hour)
	previousHour := currentHour.Add(-time.Hour)

	cursor, err := j.metrics.HourlyMetricsBetween(ctx, previousHour, currentHour.Add(time.Hour))
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close()

	pub, err := j.publisher.BeginPublication(ctx, ranking.HourlyKey(currentHour))
	if err != nil {
		return 0, 0, err
	}

	var read int64
	chunk := make([]rankstore.Entry, 0, publishChunk)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := pub.Add(ctx, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for {
		m, ok, err := cursor.Next()
		if err != nil {
			return read, int64(pub.Written()), fmt.Errorf("read hourly metrics: %w", err)
		}
		if !ok {
			break
		}
		read++

		score := calc.Contribution(ranking.BucketMetrics{
			Views:       m.ViewCount,
			Likes:       m.LikeCount,
			OrderAmount: m.OrderAmount,
		}, m.StatHour.Equal(currentHour))

		chunk = append(chunk, rankstore.Entry{ProductID: m.ProductID, Score: score.Float64()})
		if len(chunk) == publishChunk {
			if err := flush(); err != nil {
				return read, int64(pub.Written()), err
			}
		}
	}
	if err := flush(); err != nil {
		return read, int64(pub.Written()), err
	}

	if err := pub.Commit(ctx); err != nil {
		return read, int64(pub.Written()), err
	}
	return read, int64(pub.Written()), nil
}

var _ Job = (*HourlyRankingJob)(nil)
var _ HourlyMetricSource = (*repository.Repository)(nil)
