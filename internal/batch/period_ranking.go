package batch

import (
	"context"
	"fmt"
	"sort"

	"shoprank/internal/ranking"
	"shoprank/internal/repository"
)

// PeriodRankingJob materializes the weekly or monthly top 100 from daily
// metrics. The base date's row contributes 0.9 of its raw score, every
// older day in the window 0.1.
type PeriodRankingJob struct {
	period  ranking.Period
	days    int
	metrics DailyMetricSource
	weights WeightSource
	ranks   RankWriter
}

func NewWeeklyRankingJob(metrics DailyMetricSource, weights WeightSource, ranks RankWriter) *PeriodRankingJob {
	return &PeriodRankingJob{period: ranking.PeriodWeekly, days: 7, metrics: metrics, weights: weights, ranks: ranks}
}

func NewMonthlyRankingJob(metrics DailyMetricSource, weights WeightSource, ranks RankWriter) *PeriodRankingJob {
	return &PeriodRankingJob{period: ranking.PeriodMonthly, days: 30, metrics: metrics, weights: weights, ranks: ranks}
}

func (j *PeriodRankingJob) Name() string {
	if j.period == ranking.PeriodWeekly {
		return "weeklyRankingJob"
	}
	return "monthlyRankingJob"
}

func (j *PeriodRankingJob) Run(ctx context.Context, params Params) (int64, int64, error) {
	calc, err := snapshotCalculator(ctx, j.weights)
	if err != nil {
		return 0, 0, err
	}

	baseDate := params.BaseDate
	fromDate := baseDate.AddDate(0, 0, -(j.days - 1))

	cursor, err := j.metrics.DailyMetricsBetween(ctx, fromDate, baseDate)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close()

	var read int64
	totals := make(map[int64]ranking.Score)
	for {
		m, ok, err := cursor.Next()
		if err != nil {
			return read, 0, fmt.Errorf("read daily metrics: %w", err)
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
		totals[m.ProductID] = totals[m.ProductID].Add(score)
	}

	type scored struct {
		productID int64
		score     ranking.Score
	}
	ordered := make([]scored, 0, len(totals))
	for id, s := range totals {
		ordered = append(ordered, scored{productID: id, score: s})
	}
	// Score descending, product id ascending for equal scores, so reruns
	// over the same data produce the same ranking.
	sort.Slice(ordered, func(i, k int) bool {
		if c := ordered[i].score.Cmp(ordered[k].score); c != 0 {
			return c > 0
		}
		return ordered[i].productID < ordered[k].productID
	})
	if len(ordered) > repository.MaxRankRows {
		ordered = ordered[:repository.MaxRankRows]
	}

	rows := make([]repository.PeriodRank, len(ordered))
	for i, s := range ordered {
		rows[i] = repository.PeriodRank{
			BaseDate:  baseDate,
			Rank:      i + 1,
			ProductID: s.productID,
			Score:     s.score.Decimal(),
		}
	}
	if err := j.ranks.ReplacePeriodRanks(ctx, j.period, baseDate, rows); err != nil {
		return read, 0, err
	}
	return read, int64(len(rows)), nil
}

var _ Job = (*PeriodRankingJob)(nil)
var _ RankWriter = (*repository.Repository)(nil)
var _ WeightSource = (*repository.Repository)(nil)
