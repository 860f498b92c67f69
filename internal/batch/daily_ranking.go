package batch

import (
	"context"
	"fmt"

	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

// DailyRankingJob composes today's and yesterday's daily metrics into the
// daily ranking sorted set. Today's row contributes 0.9 of its raw score,
// yesterday's 0.1.
type DailyRankingJob struct {
	metrics   DailyMetricSource
	weights   WeightSource
	publisher Publisher
}

func NewDailyRankingJob(metrics DailyMetricSource, weights WeightSource, publisher Publisher) *DailyRankingJob {
	return &DailyRankingJob{metrics: metrics, weights: weights, publisher: publisher}
}

func (j *DailyRankingJob) Name() string { return "dailyRankingJob" }

func (j *DailyRankingJob) Run(ctx context.Context, params Params) (int64, int64, error) {
	calc, err := snapshotCalculator(ctx, j.weights)
	if err != nil {
		return 0, 0, err
	}

	baseDate := params.BaseDate
	cursor, err := j.metrics.DailyMetricsBetween(ctx, baseDate.AddDate(0, 0, -1), baseDate)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close()

	pub, err := j.publisher.BeginPublication(ctx, ranking.DailyKey(baseDate))
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
			return read, int64(pub.Written()), fmt.Errorf("read daily metrics: %w", err)
		}
		if !ok {
			break
		}
		read++

		score := calc.Contribution(ranking.BucketMetrics{
			Views:       m.ViewCount,
			Likes:       m.LikeCount,
			OrderAmount: m.OrderAmount,
		}, ranking.SameDate(m.StatDate, baseDate))

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

var _ Job = (*DailyRankingJob)(nil)
var _ DailyMetricSource = (*repository.Repository)(nil)
