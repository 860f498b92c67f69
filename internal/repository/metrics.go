package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HourlyMetric is one product's accumulated interaction counters for one
// hour bucket. LikeCount is signed: likes created in one hour can be
// canceled in a later one.
type HourlyMetric struct {
	StatHour    time.Time
	ProductID   int64
	ViewCount   int64
	LikeCount   int64
	OrderAmount decimal.Decimal
}

// DailyMetric is the day-level rollup of HourlyMetric. The ranking pipeline
// treats it as read-only; only the rollup jobs write it.
type DailyMetric struct {
	StatDate    time.Time
	ProductID   int64
	ViewCount   int64
	LikeCount   int64
	OrderAmount decimal.Decimal
}

// MetricDelta is one accumulation command row. LikeDelta is likes created
// minus likes canceled within the batch.
type MetricDelta struct {
	StatHour    time.Time
	ProductID   int64
	ViewDelta   int64
	LikeDelta   int64
	OrderAmount decimal.Decimal
}

// BatchAccumulate upserts-increments hourly metric rows. Each row is atomic
// on (stat_hour, product_id) and the operation is commutative: the same
// total deltas produce the same final state regardless of call grouping or
// ordering. Empty input is a no-op.
func (r *Repository) BatchAccumulate(ctx context.Context, deltas []MetricDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, d := range deltas {
		b.Queue(`
			INSERT INTO product_hourly_metric (stat_hour, product_id, view_count, like_count, order_amount)
			VALUES ($1, $2, $3, $4, $5::numeric)
			ON CONFLICT (stat_hour, product_id) DO UPDATE SET
				view_count   = product_hourly_metric.view_count + EXCLUDED.view_count,
				like_count   = product_hourly_metric.like_count + EXCLUDED.like_count,
				order_amount = product_hourly_metric.order_amount + EXCLUDED.order_amount,
				updated_at   = NOW()`,
			d.StatHour.UTC().Truncate(time.Hour), d.ProductID, d.ViewDelta, d.LikeDelta, d.OrderAmount.String())
	}

	br := r.db.SendBatch(ctx, b)
	defer br.Close()
	for range deltas {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("accumulate hourly metrics: %w", err)
		}
	}
	return nil
}

// HourlyMetricCursor streams hourly metric rows without materializing the
// full window (it can hold hundreds of thousands of products).
type HourlyMetricCursor interface {
	// Next returns the next row; ok=false signals end of stream or error.
	Next() (m HourlyMetric, ok bool, err error)
	Close()
}

// DailyMetricCursor streams daily metric rows.
type DailyMetricCursor interface {
	Next() (m DailyMetric, ok bool, err error)
	Close()
}

type hourlyMetricRows struct {
	rows pgx.Rows
}

func (c *hourlyMetricRows) Next() (HourlyMetric, bool, error) {
	if !c.rows.Next() {
		return HourlyMetric{}, false, c.rows.Err()
	}
	var m HourlyMetric
	var amount string
	if err := c.rows.Scan(&m.StatHour, &m.ProductID, &m.ViewCount, &m.LikeCount, &amount); err != nil {
		return HourlyMetric{}, false, fmt.Errorf("scan hourly metric: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return HourlyMetric{}, false, fmt.Errorf("parse order_amount %q: %w", amount, err)
	}
	m.OrderAmount = d
	return m, true, nil
}

func (c *hourlyMetricRows) Close() { c.rows.Close() }

// HourlyMetricsBetween streams rows with from <= stat_hour < to.
func (r *Repository) HourlyMetricsBetween(ctx context.Context, from, to time.Time) (HourlyMetricCursor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT stat_hour, product_id, view_count, like_count, order_amount::text
		FROM product_hourly_metric
		WHERE stat_hour >= $1 AND stat_hour < $2
		ORDER BY stat_hour, product_id`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query hourly metrics [%s, %s): %w", from, to, err)
	}
	return &hourlyMetricRows{rows: rows}, nil
}

type dailyMetricRows struct {
	rows pgx.Rows
}

func (c *dailyMetricRows) Next() (DailyMetric, bool, error) {
	if !c.rows.Next() {
		return DailyMetric{}, false, c.rows.Err()
	}
	var m DailyMetric
	var amount string
	if err := c.rows.Scan(&m.StatDate, &m.ProductID, &m.ViewCount, &m.LikeCount, &amount); err != nil {
		return DailyMetric{}, false, fmt.Errorf("scan daily metric: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return DailyMetric{}, false, fmt.Errorf("parse order_amount %q: %w", amount, err)
	}
	m.OrderAmount = d
	return m, true, nil
}

func (c *dailyMetricRows) Close() { c.rows.Close() }

// DailyMetricsBetween streams rows with fromDate <= stat_date <= toDate.
func (r *Repository) DailyMetricsBetween(ctx context.Context, fromDate, toDate time.Time) (DailyMetricCursor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT stat_date, product_id, view_count, like_count, order_amount::text
		FROM product_daily_metric
		WHERE stat_date >= $1::date AND stat_date <= $2::date
		ORDER BY stat_date, product_id`,
		fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query daily metrics [%s, %s]: %w", fromDate, toDate, err)
	}
	return &dailyMetricRows{rows: rows}, nil
}

// UpsertDailyMetrics writes rollup rows for one stat date. Re-running a
// rollup replaces the row values (not increments), which keeps the job
// idempotent for the same base date.
func (r *Repository) UpsertDailyMetrics(ctx context.Context, statDate time.Time, rows []DailyMetric) error {
	if len(rows) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	date := statDate.Format("2006-01-02")
	for _, m := range rows {
		b.Queue(`
			INSERT INTO product_daily_metric (stat_date, product_id, view_count, like_count, order_amount)
			VALUES ($1::date, $2, $3, $4, $5::numeric)
			ON CONFLICT (stat_date, product_id) DO UPDATE SET
				view_count   = EXCLUDED.view_count,
				like_count   = EXCLUDED.like_count,
				order_amount = EXCLUDED.order_amount,
				updated_at   = NOW()`,
			date, m.ProductID, m.ViewCount, m.LikeCount, m.OrderAmount.String())
	}

	br := r.db.SendBatch(ctx, b)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert daily metrics for %s: %w", date, err)
		}
	}
	return nil
}
