package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"shoprank/internal/cache"
	"shoprank/internal/eventbus"
	"shoprank/internal/repository"
)

type fakeProductStore struct {
	products map[int64]repository.Product

	findCalls  int
	batchCalls int
	listCalls  int
	listTotal  int64
}

func (f *fakeProductStore) FindProductByID(_ context.Context, id int64) (*repository.Product, error) {
	f.findCalls++
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProductStore) FindProductsByIDs(_ context.Context, ids []int64) (map[int64]repository.Product, error) {
	f.batchCalls++
	out := make(map[int64]repository.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProductStore) ListProducts(_ context.Context, q repository.ProductQuery) ([]repository.Product, int64, error) {
	f.listCalls++
	out := make([]repository.Product, 0, len(f.products))
	for id := int64(1); int64(len(out)) < int64(q.Size) && id <= 1000; id++ {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, f.listTotal, nil
}

type fakeProductCache struct {
	details map[int64]cache.CachedProductDetailV1
	lists   map[string]cache.CachedProductListV1

	getListCalls int
	setListCalls int
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{
		details: make(map[int64]cache.CachedProductDetailV1),
		lists:   make(map[string]cache.CachedProductListV1),
	}
}

func (f *fakeProductCache) GetDetail(_ context.Context, id int64) (*cache.CachedProductDetailV1, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeProductCache) GetDetails(_ context.Context, ids []int64) (map[int64]cache.CachedProductDetailV1, []int64, error) {
	hits := make(map[int64]cache.CachedProductDetailV1)
	var missing []int64
	for _, id := range ids {
		if d, ok := f.details[id]; ok {
			hits[id] = d
		} else {
			missing = append(missing, id)
		}
	}
	return hits, missing, nil
}

func (f *fakeProductCache) SetDetail(_ context.Context, d cache.CachedProductDetailV1) error {
	f.details[d.ProductID] = d
	return nil
}

func (f *fakeProductCache) SetDetails(_ context.Context, details []cache.CachedProductDetailV1) error {
	for _, d := range details {
		f.details[d.ProductID] = d
	}
	return nil
}

func (f *fakeProductCache) GetList(_ context.Context, key string) (*cache.CachedProductListV1, error) {
	f.getListCalls++
	l, ok := f.lists[key]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeProductCache) SetList(_ context.Context, key string, l cache.CachedProductListV1) error {
	f.setListCalls++
	f.lists[key] = l
	return nil
}

type fakeRankLookup struct {
	rank *int64
	err  error
}

func (f *fakeRankLookup) CurrentRank(context.Context, int64) (*int64, error) {
	return f.rank, f.err
}

type recordingPublisher struct {
	events []eventbus.Event
}

func (r *recordingPublisher) Publish(evt eventbus.Event) {
	r.events = append(r.events, evt)
}

func testProduct(id int64, name string) repository.Product {
	return repository.Product{
		ID:        id,
		Name:      name,
		BrandID:   1,
		Price:     decimal.RequireFromString("19900.00"),
		Stock:     10,
		LikeCount: 5,
	}
}

func TestService_FindProductByID_CacheMissFillsAndPublishes(t *testing.T) {
	store := &fakeProductStore{products: map[int64]repository.Product{100: testProduct(100, "sneakers")}}
	productCache := newFakeProductCache()
	rank := int64(7)
	events := &recordingPublisher{}
	svc := NewService(store, productCache, &fakeRankLookup{rank: &rank}, events)

	userID := int64(42)
	detail, err := svc.FindProductByID(context.Background(), 100, &userID)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil || detail.Name != "sneakers" {
		t.Fatalf("detail %+v", detail)
	}
	if detail.Rank == nil || *detail.Rank != 7 {
		t.Errorf("rank %v, want 7", detail.Rank)
	}
	if store.findCalls != 1 {
		t.Errorf("find calls %d", store.findCalls)
	}
	if _, ok := productCache.details[100]; !ok {
		t.Error("detail cache was not filled")
	}

	if len(events.events) != 1 {
		t.Fatalf("events %d, want exactly 1", len(events.events))
	}
	payload, ok := events.events[0].Data.(eventbus.ProductViewedV1)
	if !ok || payload.ProductID != 100 || payload.UserID == nil || *payload.UserID != 42 {
		t.Errorf("payload %+v", events.events[0].Data)
	}

	// Second read is served from cache but still publishes a view.
	if _, err := svc.FindProductByID(context.Background(), 100, nil); err != nil {
		t.Fatal(err)
	}
	if store.findCalls != 1 {
		t.Errorf("cache hit still hit the database, find calls %d", store.findCalls)
	}
	if len(events.events) != 2 {
		t.Errorf("events %d, want 2", len(events.events))
	}
}

func TestService_FindProductByID_MissingProduct(t *testing.T) {
	events := &recordingPublisher{}
	svc := NewService(&fakeProductStore{products: map[int64]repository.Product{}}, newFakeProductCache(), &fakeRankLookup{}, events)

	detail, err := svc.FindProductByID(context.Background(), 999, nil)
	if err != nil || detail != nil {
		t.Fatalf("detail=%v err=%v, want nil nil", detail, err)
	}
	if len(events.events) != 0 {
		t.Errorf("missing product must not publish a view, got %d events", len(events.events))
	}
}

func TestService_FindProductByID_RankFailureDegrades(t *testing.T) {
	store := &fakeProductStore{products: map[int64]repository.Product{100: testProduct(100, "sneakers")}}
	svc := NewService(store, newFakeProductCache(), &fakeRankLookup{err: errors.New("redis down")}, &recordingPublisher{})

	detail, err := svc.FindProductByID(context.Background(), 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Rank != nil {
		t.Errorf("rank %v, want nil when the rank store is down", detail.Rank)
	}
}

func TestService_FindProducts_CachedListWithEvictedDetail(t *testing.T) {
	store := &fakeProductStore{products: map[int64]repository.Product{
		1: testProduct(1, "alpha"),
		2: testProduct(2, "bravo"),
		3: testProduct(3, "charlie"),
	}}
	productCache := newFakeProductCache()
	svc := NewService(store, productCache, &fakeRankLookup{}, &recordingPublisher{})

	q := repository.ProductQuery{Page: 0, Size: 20, Sort: "latest"}
	key := cache.ListKey(q.Page, q.Size, q.Sort, q.BrandID)
	productCache.lists[key] = cache.CachedProductListV1{ProductIDs: []int64{1, 2, 3}, TotalCount: 3}
	// Details for 1 and 3 are cached; 2 was evicted.
	productCache.details[1] = cache.CachedProductDetailV1{ProductID: 1, Name: "alpha", BrandID: 1, Price: "19900.00"}
	productCache.details[3] = cache.CachedProductDetailV1{ProductID: 3, Name: "charlie", BrandID: 1, Price: "19900.00"}

	page, err := svc.FindProducts(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if store.listCalls != 0 {
		t.Errorf("cached page must not run the list query, calls %d", store.listCalls)
	}
	if store.batchCalls != 1 {
		t.Errorf("batch calls %d, want 1 for the evicted id", store.batchCalls)
	}

	// Input order survives the splice of cache hits and the DB refetch.
	if len(page.Items) != 3 {
		t.Fatalf("items %+v", page.Items)
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if page.Items[i].Name != want {
			t.Errorf("item %d = %q, want %q", i, page.Items[i].Name, want)
		}
	}
	if page.TotalCount != 3 {
		t.Errorf("total %d", page.TotalCount)
	}
	if _, ok := productCache.details[2]; !ok {
		t.Error("refetched detail was not written back to the cache")
	}
}

func TestService_FindProducts_ColdListFillsCaches(t *testing.T) {
	store := &fakeProductStore{
		products:  map[int64]repository.Product{1: testProduct(1, "alpha"), 2: testProduct(2, "bravo")},
		listTotal: 2,
	}
	productCache := newFakeProductCache()
	svc := NewService(store, productCache, &fakeRankLookup{}, &recordingPublisher{})

	page, err := svc.FindProducts(context.Background(), repository.ProductQuery{Page: 1, Size: 20, Sort: "latest"})
	if err != nil {
		t.Fatal(err)
	}
	if store.listCalls != 1 {
		t.Errorf("list calls %d", store.listCalls)
	}
	if page.TotalCount != 2 || len(page.Items) != 2 {
		t.Errorf("page %+v", page)
	}
	if productCache.setListCalls != 1 {
		t.Errorf("list cache fills %d, want 1", productCache.setListCalls)
	}
	if len(productCache.details) != 2 {
		t.Errorf("detail cache fills %d, want 2", len(productCache.details))
	}
}

func TestService_FindProducts_DeepPageBypassesCache(t *testing.T) {
	store := &fakeProductStore{
		products:  map[int64]repository.Product{1: testProduct(1, "alpha")},
		listTotal: 100,
	}
	productCache := newFakeProductCache()
	svc := NewService(store, productCache, &fakeRankLookup{}, &recordingPublisher{})

	if _, err := svc.FindProducts(context.Background(), repository.ProductQuery{Page: 3, Size: 20, Sort: "latest"}); err != nil {
		t.Fatal(err)
	}
	if store.listCalls != 1 {
		t.Errorf("list calls %d", store.listCalls)
	}
	if productCache.getListCalls != 0 || productCache.setListCalls != 0 {
		t.Errorf("deep page touched the list cache: get=%d set=%d", productCache.getListCalls, productCache.setListCalls)
	}
}
