package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Product is the read model served by the catalog APIs.
type Product struct {
	ID        int64
	Name      string
	BrandID   int64
	Price     decimal.Decimal
	Stock     int64
	LikeCount int64
}

// ProductQuery selects one page of the product list.
type ProductQuery struct {
	Page    int
	Size    int
	Sort    string // latest | price_asc | likes_desc
	BrandID *int64
}

const productColumns = `id, name, brand_id, price::text, stock, like_count`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.BrandID, &price, &p.Stock, &p.LikeCount); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}

// FindProductByID returns nil when the product does not exist.
func (r *Repository) FindProductByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM product WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return &p, nil
}

// FindProductsByIDs fetches the given products in one round trip. Missing
// ids are simply absent from the result map.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	if len(ids) == 0 {
		return map[int64]Product{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM product WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find products by ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func orderClauseFor(sort string) string {
	switch sort {
	case "price_asc":
		return "price ASC, id ASC"
	case "likes_desc":
		return "like_count DESC, id ASC"
	default: // latest
		return "created_at DESC, id DESC"
	}
}

// ListProducts returns one page plus the total row count for the filter.
func (r *Repository) ListProducts(ctx context.Context, q ProductQuery) ([]Product, int64, error) {
	where := ""
	args := []interface{}{q.Size, q.Page * q.Size}
	if q.BrandID != nil {
		where = "WHERE brand_id = $3"
		args = append(args, *q.BrandID)
	}

	query := fmt.Sprintf(`SELECT %s FROM product %s ORDER BY %s LIMIT $1 OFFSET $2`,
		productColumns, where, orderClauseFor(q.Sort))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, q.Size)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM product"
	countArgs := []interface{}{}
	if q.BrandID != nil {
		countQuery += " WHERE brand_id = $1"
		countArgs = append(countArgs, *q.BrandID)
	}
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	return out, total, nil
}
