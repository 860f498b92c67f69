package batch

import (
	"context"
	"time"

	"shoprank/internal/ranking"
	"shoprank/internal/rankstore"
	"shoprank/internal/repository"
)

type fakeHourlyCursor struct {
	rows []repository.HourlyMetric
	pos  int
	err  error
}

func (c *fakeHourlyCursor) Next() (repository.HourlyMetric, bool, error) {
	if c.err != nil {
		return repository.HourlyMetric{}, false, c.err
	}
	if c.pos >= len(c.rows) {
		return repository.HourlyMetric{}, false, nil
	}
	m := c.rows[c.pos]
	c.pos++
	return m, true, nil
}

func (c *fakeHourlyCursor) Close() {}

type fakeDailyCursor struct {
	rows []repository.DailyMetric
	pos  int
}

func (c *fakeDailyCursor) Next() (repository.DailyMetric, bool, error) {
	if c.pos >= len(c.rows) {
		return repository.DailyMetric{}, false, nil
	}
	m := c.rows[c.pos]
	c.pos++
	return m, true, nil
}

func (c *fakeDailyCursor) Close() {}

// fakeMetrics serves canned metric rows filtered by the requested window,
// standing in for the repository.
type fakeMetrics struct {
	hourly []repository.HourlyMetric
	daily  []repository.DailyMetric

	upsertedDate time.Time
	upserted     []repository.DailyMetric
}

func (f *fakeMetrics) HourlyMetricsBetween(_ context.Context, from, to time.Time) (repository.HourlyMetricCursor, error) {
	var rows []repository.HourlyMetric
	for _, m := range f.hourly {
		if !m.StatHour.Before(from) && m.StatHour.Before(to) {
			rows = append(rows, m)
		}
	}
	return &fakeHourlyCursor{rows: rows}, nil
}

func (f *fakeMetrics) DailyMetricsBetween(_ context.Context, fromDate, toDate time.Time) (repository.DailyMetricCursor, error) {
	var rows []repository.DailyMetric
	for _, m := range f.daily {
		if !m.StatDate.Before(fromDate) && !m.StatDate.After(toDate) {
			rows = append(rows, m)
		}
	}
	return &fakeDailyCursor{rows: rows}, nil
}

func (f *fakeMetrics) UpsertDailyMetrics(_ context.Context, statDate time.Time, rows []repository.DailyMetric) error {
	f.upsertedDate = statDate
	f.upserted = rows
	return nil
}

type fakeWeights struct {
	weights ranking.Weights
	ok      bool
	err     error
}

func (f *fakeWeights) LatestWeights(context.Context) (ranking.Weights, bool, error) {
	return f.weights, f.ok, f.err
}

func defaultFakeWeights() *fakeWeights {
	return &fakeWeights{weights: ranking.DefaultWeights(), ok: true}
}

// fakePublication records staged entries and whether the staging set was
// renamed over the live key.
type fakePublication struct {
	entries []rankstore.Entry
	renamed bool
	addErr  error
}

func (p *fakePublication) Add(_ context.Context, entries []rankstore.Entry) error {
	if p.addErr != nil {
		return p.addErr
	}
	p.entries = append(p.entries, entries...)
	return nil
}

func (p *fakePublication) Commit(context.Context) error {
	if len(p.entries) == 0 {
		return nil
	}
	p.renamed = true
	return nil
}

func (p *fakePublication) Written() int { return len(p.entries) }

// scoreFor sums the staged contributions of one product the way ZINCRBY
// would.
func (p *fakePublication) scoreFor(productID int64) (float64, bool) {
	var total float64
	found := false
	for _, e := range p.entries {
		if e.ProductID == productID {
			total += e.Score
			found = true
		}
	}
	return total, found
}

type fakePublisher struct {
	liveKey string
	pub     *fakePublication
}

func (f *fakePublisher) BeginPublication(_ context.Context, liveKey string) (rankstore.Publication, error) {
	f.liveKey = liveKey
	f.pub = &fakePublication{}
	return f.pub, nil
}

type fakeRankWriter struct {
	period   ranking.Period
	baseDate time.Time
	rows     []repository.PeriodRank
	calls    int
}

func (f *fakeRankWriter) ReplacePeriodRanks(_ context.Context, p ranking.Period, baseDate time.Time, rows []repository.PeriodRank) error {
	f.period = p
	f.baseDate = baseDate
	f.rows = rows
	f.calls++
	return nil
}
