package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"shoprank/internal/ranking"
)

// MaxRankRows is the depth of a materialized ranking for one base date.
const MaxRankRows = 100

const rankInsertBatchSize = 100

// PeriodRank is one row of a materialized weekly/monthly ranking.
type PeriodRank struct {
	BaseDate  time.Time
	Rank      int
	ProductID int64
	Score     decimal.Decimal
}

func rankTableFor(p ranking.Period) (string, error) {
	switch p {
	case ranking.PeriodWeekly:
		return "mv_product_rank_weekly", nil
	case ranking.PeriodMonthly:
		return "mv_product_rank_monthly", nil
	default:
		return "", fmt.Errorf("period %s has no materialized rank table", p)
	}
}

// ReplacePeriodRanks overwrites the ranking for baseDate in a single
// transaction: delete existing rows, then insert the new set in batches of
// 100. Empty input is a no-op and must not delete the previous ranking.
func (r *Repository) ReplacePeriodRanks(ctx context.Context, p ranking.Period, baseDate time.Time, rows []PeriodRank) error {
	if len(rows) == 0 {
		return nil
	}
	table, err := rankTableFor(p)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Rank < 1 || row.Rank > MaxRankRows {
			return fmt.Errorf("rank %d out of range [1, %d]", row.Rank, MaxRankRows)
		}
		if row.Score.IsNegative() {
			return fmt.Errorf("negative score %s for product %d", row.Score, row.ProductID)
		}
	}

	date := baseDate.Format("2006-01-02")
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace %s ranks: %w", p, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE base_date = $1::date`, table), date); err != nil {
		return fmt.Errorf("delete %s ranks for %s: %w", p, date, err)
	}

	for start := 0; start < len(rows); start += rankInsertBatchSize {
		end := start + rankInsertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		b := &pgx.Batch{}
		for _, row := range rows[start:end] {
			b.Queue(fmt.Sprintf(`
				INSERT INTO %s (base_date, rank, product_id, score)
				VALUES ($1::date, $2, $3, $4::numeric)`, table),
				date, row.Rank, row.ProductID, row.Score.StringFixed(2))
		}
		br := tx.SendBatch(ctx, b)
		for range rows[start:end] {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert %s ranks for %s: %w", p, date, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close %s rank batch: %w", p, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s ranks for %s: %w", p, date, err)
	}
	return nil
}

// FindPeriodRank looks up one product's materialized rank for baseDate.
// Returns nil when the product is not ranked.
func (r *Repository) FindPeriodRank(ctx context.Context, p ranking.Period, baseDate time.Time, productID int64) (*PeriodRank, error) {
	table, err := rankTableFor(p)
	if err != nil {
		return nil, err
	}

	row := PeriodRank{BaseDate: ranking.KSTDate(baseDate), ProductID: productID}
	var score string
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT rank, score::text FROM %s
		WHERE base_date = $1::date AND product_id = $2`, table),
		baseDate.Format("2006-01-02"), productID).Scan(&row.Rank, &score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s rank: %w", p, err)
	}
	row.Score, err = decimal.NewFromString(score)
	if err != nil {
		return nil, fmt.Errorf("parse score %q: %w", score, err)
	}
	return &row, nil
}

// ListPeriodRanks returns one page of a materialized ranking ordered by
// rank, plus whether more rows follow. Out-of-range pages return empty.
func (r *Repository) ListPeriodRanks(ctx context.Context, p ranking.Period, baseDate time.Time, offset, limit int) ([]PeriodRank, bool, error) {
	table, err := rankTableFor(p)
	if err != nil {
		return nil, false, err
	}

	// Fetch one extra row to detect hasNext without a count query.
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT rank, product_id, score::text FROM %s
		WHERE base_date = $1::date
		ORDER BY rank ASC
		OFFSET $2 LIMIT $3`, table),
		baseDate.Format("2006-01-02"), offset, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("list %s ranks: %w", p, err)
	}
	defer rows.Close()

	out := make([]PeriodRank, 0, limit)
	base := ranking.KSTDate(baseDate)
	for rows.Next() {
		var row PeriodRank
		var score string
		if err := rows.Scan(&row.Rank, &row.ProductID, &score); err != nil {
			return nil, false, fmt.Errorf("scan %s rank: %w", p, err)
		}
		row.BaseDate = base
		if row.Score, err = decimal.NewFromString(score); err != nil {
			return nil, false, fmt.Errorf("parse score %q: %w", score, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	page, hasNext := trimRankPage(out, limit)
	return page, hasNext, nil
}

// trimRankPage converts a limit+1 overfetch into one page plus a flag for
// whether more rows follow. Out-of-range pages come through empty.
func trimRankPage(rows []PeriodRank, limit int) ([]PeriodRank, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
