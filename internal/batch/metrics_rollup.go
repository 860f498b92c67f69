package batch

import (
	"context"
	"fmt"

	"shoprank/internal/ranking"
	"shoprank/internal/repository"
)

// MetricsRollupJob sums one KST day of hourly metrics into the daily
// metric table. Two instances run on different schedules: the intraday one
// keeps today's row fresh, the early-morning one finalizes yesterday once
// all of its hours are settled.
type MetricsRollupJob struct {
	name    string
	daysAgo int
	metrics HourlyMetricSource
	writer  DailyMetricWriter
}

func NewTodayMetricsRollupJob(metrics HourlyMetricSource, writer DailyMetricWriter) *MetricsRollupJob {
	return &MetricsRollupJob{name: "todayMetricsRollupJob", daysAgo: 0, metrics: metrics, writer: writer}
}

func NewYesterdayMetricsRollupJob(metrics HourlyMetricSource, writer DailyMetricWriter) *MetricsRollupJob {
	return &MetricsRollupJob{name: "yesterdayMetricsRollupJob", daysAgo: 1, metrics: metrics, writer: writer}
}

func (j *MetricsRollupJob) Name() string { return j.name }

func (j *MetricsRollupJob) Run(ctx context.Context, params Params) (int64, int64, error) {
	statDate := params.BaseDate.AddDate(0, 0, -j.daysAgo)
	from, to := ranking.KSTDayWindow(statDate)

	cursor, err := j.metrics.HourlyMetricsBetween(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close()

	var read int64
	totals := make(map[int64]*repository.DailyMetric)
	for {
		m, ok, err := cursor.Next()
		if err != nil {
			return read, 0, fmt.Errorf("read hourly metrics: %w", err)
		}
		if !ok {
			break
		}
		read++

		t, ok := totals[m.ProductID]
		if !ok {
			t = &repository.DailyMetric{StatDate: statDate, ProductID: m.ProductID}
			totals[m.ProductID] = t
		}
		t.ViewCount += m.ViewCount
		t.LikeCount += m.LikeCount
		t.OrderAmount = t.OrderAmount.Add(m.OrderAmount)
	}

	rows := make([]repository.DailyMetric, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, *t)
	}
	if err := j.writer.UpsertDailyMetrics(ctx, statDate, rows); err != nil {
		return read, 0, err
	}
	return read, int64(len(rows)), nil
}

var _ Job = (*MetricsRollupJob)(nil)
var _ DailyMetricWriter = (*repository.Repository)(nil)
