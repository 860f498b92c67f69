// Package cache is the Redis read-through cache for the catalog: product
// detail bodies keyed per id and first-pages of the product list keyed by
// the full query shape. Values are versioned JSON so the schema can evolve
// by bumping the key version.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	detailKeyPrefix = "cache:product:detail:v1:"
	listKeyPrefix   = "cache:product:list:v1:"

	// DetailTTL is deliberately longer than ListTTL: detail bodies change
	// only on product edits, list membership churns with every sort shift.
	DetailTTL = 10 * time.Minute
	ListTTL   = time.Minute
)

// CachedProductDetailV1 is the cached detail body. Price travels as a
// decimal string so the cache round-trip never touches floats.
type CachedProductDetailV1 struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	BrandID   int64  `json:"brandId"`
	Price     string `json:"price"`
	Stock     int64  `json:"stock"`
	LikeCount int64  `json:"likeCount"`
}

// CachedProductListV1 caches one list page as ids only; detail bodies are
// resolved through the detail cache so a product edit invalidates one key.
type CachedProductListV1 struct {
	ProductIDs []int64 `json:"productIds"`
	TotalCount int64   `json:"totalCount"`
}

// DetailKey returns the detail cache key for a product.
func DetailKey(productID int64) string {
	return detailKeyPrefix + strconv.FormatInt(productID, 10)
}

// ListKey returns the list cache key for one page shape. A nil brand
// filter keys as "all" so filtered and unfiltered pages never collide.
func ListKey(page, size int, sort string, brandID *int64) string {
	brand := "all"
	if brandID != nil {
		brand = strconv.FormatInt(*brandID, 10)
	}
	return fmt.Sprintf("%sp%d:s%d:%s:b%s", listKeyPrefix, page, size, sort, brand)
}

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// GetDetail returns nil on a cache miss. A corrupt body is treated as a
// miss rather than surfacing an error into the read path.
func (c *Cache) GetDetail(ctx context.Context, productID int64) (*CachedProductDetailV1, error) {
	raw, err := c.rdb.Get(ctx, DetailKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get detail %d: %w", productID, err)
	}
	var d CachedProductDetailV1
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, nil
	}
	return &d, nil
}

// GetDetails MGETs the given ids, returning the hits keyed by id and the
// ids that missed, in input order.
func (c *Cache) GetDetails(ctx context.Context, productIDs []int64) (map[int64]CachedProductDetailV1, []int64, error) {
	if len(productIDs) == 0 {
		return map[int64]CachedProductDetailV1{}, nil, nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = DetailKey(id)
	}
	raws, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("mget %d details: %w", len(keys), err)
	}

	hits := make(map[int64]CachedProductDetailV1, len(productIDs))
	var missing []int64
	for i, raw := range raws {
		body, ok := raw.(string)
		if !ok {
			missing = append(missing, productIDs[i])
			continue
		}
		var d CachedProductDetailV1
		if err := json.Unmarshal([]byte(body), &d); err != nil {
			missing = append(missing, productIDs[i])
			continue
		}
		hits[productIDs[i]] = d
	}
	return hits, missing, nil
}

func (c *Cache) SetDetail(ctx context.Context, d CachedProductDetailV1) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal detail %d: %w", d.ProductID, err)
	}
	if err := c.rdb.Set(ctx, DetailKey(d.ProductID), body, DetailTTL).Err(); err != nil {
		return fmt.Errorf("set detail %d: %w", d.ProductID, err)
	}
	return nil
}

// SetDetails pipelines SETs for a batch of freshly loaded bodies.
func (c *Cache) SetDetails(ctx context.Context, details []CachedProductDetailV1) error {
	if len(details) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range details {
			body, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshal detail %d: %w", d.ProductID, err)
			}
			pipe.Set(ctx, DetailKey(d.ProductID), body, DetailTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %d details: %w", len(details), err)
	}
	return nil
}

// GetList returns nil on a cache miss.
func (c *Cache) GetList(ctx context.Context, key string) (*CachedProductListV1, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list %s: %w", key, err)
	}
	var l CachedProductListV1
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, nil
	}
	return &l, nil
}

func (c *Cache) SetList(ctx context.Context, key string, l CachedProductListV1) error {
	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal list %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, body, ListTTL).Err(); err != nil {
		return fmt.Errorf("set list %s: %w", key, err)
	}
	return nil
}

// InvalidateDetail drops a product's cached body after an edit.
func (c *Cache) InvalidateDetail(ctx context.Context, productID int64) error {
	if err := c.rdb.Del(ctx, DetailKey(productID)).Err(); err != nil {
		return fmt.Errorf("invalidate detail %d: %w", productID, err)
	}
	return nil
}
