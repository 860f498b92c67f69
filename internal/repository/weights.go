package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shoprank/internal/ranking"
)

// LatestWeights returns the highest-id non-soft-deleted weight row.
// ok=false means no row exists; callers fall back to the defaults.
func (r *Repository) LatestWeights(ctx context.Context) (ranking.Weights, bool, error) {
	var view, like, order string
	err := r.db.QueryRow(ctx, `
		SELECT view_weight::text, like_weight::text, order_weight::text
		FROM ranking_weight
		WHERE deleted_at IS NULL
		ORDER BY id DESC
		LIMIT 1`).Scan(&view, &like, &order)
	if errors.Is(err, pgx.ErrNoRows) {
		return ranking.Weights{}, false, nil
	}
	if err != nil {
		return ranking.Weights{}, false, fmt.Errorf("query latest weights: %w", err)
	}

	w, err := ranking.ParseWeights(view, like, order)
	if err != nil {
		return ranking.Weights{}, false, fmt.Errorf("stored weights invalid: %w", err)
	}
	return w, true, nil
}

// SaveWeights appends a new weight row. Updates are modeled as new rows so
// the full history is retained.
func (r *Repository) SaveWeights(ctx context.Context, w ranking.Weights) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ranking_weight (view_weight, like_weight, order_weight)
		VALUES ($1::numeric, $2::numeric, $3::numeric)`,
		w.View.StringFixed(2), w.Like.StringFixed(2), w.Order.StringFixed(2))
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}
