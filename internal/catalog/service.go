package catalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"shoprank/internal/cache"
	"shoprank/internal/eventbus"
	"shoprank/internal/repository"
)

// cachedListPages is how many leading list pages are cached. Deep pages
// are rare enough that caching them only churns keys.
const cachedListPages = 3

type ProductStore interface {
	FindProductByID(ctx context.Context, id int64) (*repository.Product, error)
	FindProductsByIDs(ctx context.Context, ids []int64) (map[int64]repository.Product, error)
	ListProducts(ctx context.Context, q repository.ProductQuery) ([]repository.Product, int64, error)
}

type ProductCache interface {
	GetDetail(ctx context.Context, productID int64) (*cache.CachedProductDetailV1, error)
	GetDetails(ctx context.Context, productIDs []int64) (map[int64]cache.CachedProductDetailV1, []int64, error)
	SetDetail(ctx context.Context, d cache.CachedProductDetailV1) error
	SetDetails(ctx context.Context, details []cache.CachedProductDetailV1) error
	GetList(ctx context.Context, key string) (*cache.CachedProductListV1, error)
	SetList(ctx context.Context, key string, l cache.CachedProductListV1) error
}

type RankLookup interface {
	CurrentRank(ctx context.Context, productID int64) (*int64, error)
}

type EventPublisher interface {
	Publish(evt eventbus.Event)
}

// ProductDetail is the detail page body: the product plus its current
// hourly rank, nil when unranked or the rank store is unavailable.
type ProductDetail struct {
	ProductID int64
	Name      string
	BrandID   int64
	Price     decimal.Decimal
	Stock     int64
	LikeCount int64
	Rank      *int64
}

type ProductSummary struct {
	ProductID int64
	Name      string
	BrandID   int64
	Price     decimal.Decimal
	Stock     int64
	LikeCount int64
}

type ProductPage struct {
	Items      []ProductSummary
	TotalCount int64
	Page       int
	Size       int
}

// Service composes product reads from cache and database. Cache failures
// degrade to database reads, never to request failures.
type Service struct {
	products ProductStore
	cache    ProductCache
	ranks    RankLookup
	events   EventPublisher
	now      func() time.Time
}

func NewService(products ProductStore, productCache ProductCache, ranks RankLookup, events EventPublisher) *Service {
	return &Service{
		products: products,
		cache:    productCache,
		ranks:    ranks,
		events:   events,
		now:      time.Now,
	}
}

// FindProductByID returns nil when the product does not exist. Every
// successful read publishes exactly one product.viewed event, whether it
// was served from cache or database.
func (s *Service) FindProductByID(ctx context.Context, productID int64, userID *int64) (*ProductDetail, error) {
	detail, err := s.loadDetail(ctx, productID)
	if err != nil || detail == nil {
		return nil, err
	}

	rank, err := s.ranks.CurrentRank(ctx, productID)
	if err != nil {
		// The detail page renders without a rank rather than erroring.
		log.Printf("[catalog] rank lookup for product %d failed: %v", productID, err)
		rank = nil
	}
	detail.Rank = rank

	s.events.Publish(eventbus.Event{
		Type:      eventbus.ProductViewed,
		Timestamp: s.now(),
		Data:      eventbus.ProductViewedV1{ProductID: productID, UserID: userID},
	})
	return detail, nil
}

func (s *Service) loadDetail(ctx context.Context, productID int64) (*ProductDetail, error) {
	cached, err := s.cache.GetDetail(ctx, productID)
	if err != nil {
		log.Printf("[catalog] detail cache read for product %d failed: %v", productID, err)
	} else if cached != nil {
		if d, err := detailFromCache(*cached); err == nil {
			return d, nil
		}
	}

	p, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	if err := s.cache.SetDetail(ctx, toCacheEntry(*p)); err != nil {
		log.Printf("[catalog] detail cache fill for product %d failed: %v", productID, err)
	}
	return &ProductDetail{
		ProductID: p.ID,
		Name:      p.Name,
		BrandID:   p.BrandID,
		Price:     p.Price,
		Stock:     p.Stock,
		LikeCount: p.LikeCount,
	}, nil
}

// FindProducts serves one list page. The first pages come from the list
// cache when possible; deeper pages always hit the database.
func (s *Service) FindProducts(ctx context.Context, q repository.ProductQuery) (ProductPage, error) {
	if q.Page >= cachedListPages {
		return s.listFromDB(ctx, q, "")
	}

	key := cache.ListKey(q.Page, q.Size, q.Sort, q.BrandID)
	cached, err := s.cache.GetList(ctx, key)
	if err != nil {
		log.Printf("[catalog] list cache read %s failed: %v", key, err)
		cached = nil
	}
	if cached == nil {
		return s.listFromDB(ctx, q, key)
	}

	items, err := s.resolveSummaries(ctx, cached.ProductIDs)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Items: items, TotalCount: cached.TotalCount, Page: q.Page, Size: q.Size}, nil
}

func (s *Service) listFromDB(ctx context.Context, q repository.ProductQuery, fillKey string) (ProductPage, error) {
	products, total, err := s.products.ListProducts(ctx, q)
	if err != nil {
		return ProductPage{}, err
	}

	items := make([]ProductSummary, len(products))
	entries := make([]cache.CachedProductDetailV1, len(products))
	ids := make([]int64, len(products))
	for i, p := range products {
		items[i] = summaryFromProduct(p)
		entries[i] = toCacheEntry(p)
		ids[i] = p.ID
	}

	if fillKey != "" {
		if err := s.cache.SetList(ctx, fillKey, cache.CachedProductListV1{ProductIDs: ids, TotalCount: total}); err != nil {
			log.Printf("[catalog] list cache fill %s failed: %v", fillKey, err)
		}
		if err := s.cache.SetDetails(ctx, entries); err != nil {
			log.Printf("[catalog] detail cache fill for %d products failed: %v", len(entries), err)
		}
	}
	return ProductPage{Items: items, TotalCount: total, Page: q.Page, Size: q.Size}, nil
}

// resolveSummaries turns a cached id list into summaries, batch-loading
// the ids whose detail entries evicted. Input order is preserved; ids
// that no longer exist in the database are dropped.
func (s *Service) resolveSummaries(ctx context.Context, ids []int64) ([]ProductSummary, error) {
	hits, missing, err := s.cache.GetDetails(ctx, ids)
	if err != nil {
		log.Printf("[catalog] detail cache mget for %d ids failed: %v", len(ids), err)
		hits = map[int64]cache.CachedProductDetailV1{}
		missing = ids
	}

	fromDB := map[int64]repository.Product{}
	if len(missing) > 0 {
		fromDB, err = s.products.FindProductsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		refill := make([]cache.CachedProductDetailV1, 0, len(fromDB))
		for _, p := range fromDB {
			refill = append(refill, toCacheEntry(p))
		}
		if err := s.cache.SetDetails(ctx, refill); err != nil {
			log.Printf("[catalog] detail cache refill for %d products failed: %v", len(refill), err)
		}
	}

	out := make([]ProductSummary, 0, len(ids))
	for _, id := range ids {
		if cached, ok := hits[id]; ok {
			if sum, err := summaryFromCache(cached); err == nil {
				out = append(out, sum)
				continue
			}
		}
		if p, ok := fromDB[id]; ok {
			out = append(out, summaryFromProduct(p))
		}
	}
	return out, nil
}

func toCacheEntry(p repository.Product) cache.CachedProductDetailV1 {
	return cache.CachedProductDetailV1{
		ProductID: p.ID,
		Name:      p.Name,
		BrandID:   p.BrandID,
		Price:     p.Price.StringFixed(2),
		Stock:     p.Stock,
		LikeCount: p.LikeCount,
	}
}

func summaryFromProduct(p repository.Product) ProductSummary {
	return ProductSummary{
		ProductID: p.ID,
		Name:      p.Name,
		BrandID:   p.BrandID,
		Price:     p.Price,
		Stock:     p.Stock,
		LikeCount: p.LikeCount,
	}
}

func summaryFromCache(d cache.CachedProductDetailV1) (ProductSummary, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return ProductSummary{}, fmt.Errorf("cached price %q: %w", d.Price, err)
	}
	return ProductSummary{
		ProductID: d.ProductID,
		Name:      d.Name,
		BrandID:   d.BrandID,
		Price:     price,
		Stock:     d.Stock,
		LikeCount: d.LikeCount,
	}, nil
}

func detailFromCache(d cache.CachedProductDetailV1) (*ProductDetail, error) {
	sum, err := summaryFromCache(d)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{
		ProductID: sum.ProductID,
		Name:      sum.Name,
		BrandID:   sum.BrandID,
		Price:     sum.Price,
		Stock:     sum.Stock,
		LikeCount: sum.LikeCount,
	}, nil
}

var _ ProductStore = (*repository.Repository)(nil)
var _ ProductCache = (*cache.Cache)(nil)
var _ EventPublisher = (*eventbus.Bus)(nil)
