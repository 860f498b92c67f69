package rankstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb), mr
}

func TestPublication_EmptyCommitIsNoop(t *testing.T) {
	t.Parallel()

	// Zero staged entries must never rename over the live key; the commit
	// returns before any Redis command is issued.
	pub := &publication{
		liveKey:    "ranking:products:hourly:2025010310",
		stagingKey: "ranking:products:hourly:2025010310:staging",
	}
	if pub.Written() != 0 {
		t.Fatalf("fresh publication written = %d", pub.Written())
	}
	if err := pub.Commit(context.Background()); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
}

func TestPublication_AddEmptySlice(t *testing.T) {
	t.Parallel()

	pub := &publication{stagingKey: "k:staging"}
	if err := pub.Add(context.Background(), nil); err != nil {
		t.Fatalf("empty add: %v", err)
	}
	if pub.Written() != 0 {
		t.Errorf("written = %d", pub.Written())
	}
}

func TestStore_PublishAndTopNPaging(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	key := "ranking:products:hourly:2025010310"
	entries := make([]Entry, 20)
	for i := range entries {
		entries[i] = Entry{ProductID: int64(i + 1), Score: float64(i + 1)}
	}
	written, err := store.Publish(ctx, key, entries)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if written != 20 {
		t.Fatalf("written = %d", written)
	}
	if mr.Exists(key + ":staging") {
		t.Error("staging key must not survive the commit")
	}
	if mr.TTL(key) != liveTTL {
		t.Errorf("live ttl = %s", mr.TTL(key))
	}

	cases := []struct {
		name          string
		page, size    int
		wantLen       int
		wantHasNext   bool
		wantFirstRank int
	}{
		{"first page of more", 0, 10, 10, true, 1},
		{"last full page, total equals end+1", 1, 10, 10, false, 11},
		{"partial last page", 1, 15, 5, false, 16},
		{"out-of-range page is empty", 5, 10, 0, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, hasNext, err := store.TopN(ctx, key, tc.page, tc.size)
			if err != nil {
				t.Fatalf("topn: %v", err)
			}
			if len(rows) != tc.wantLen || hasNext != tc.wantHasNext {
				t.Fatalf("page=%d size=%d: %d rows hasNext=%v, want %d, %v",
					tc.page, tc.size, len(rows), hasNext, tc.wantLen, tc.wantHasNext)
			}
			if tc.wantLen > 0 && rows[0].Rank != tc.wantFirstRank {
				t.Errorf("first rank %d, want %d", rows[0].Rank, tc.wantFirstRank)
			}
		})
	}

	// Highest score first: product 20 leads the board.
	rows, _, err := store.TopN(ctx, key, 0, 1)
	if err != nil || len(rows) != 1 {
		t.Fatalf("topn head: %v %v", rows, err)
	}
	if rows[0].ProductID != 20 || rows[0].Score != 20 {
		t.Errorf("head = %+v", rows[0])
	}
}

func TestStore_CommitIsThePublishBarrier(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	key := "ranking:products:daily:20250103"

	if _, err := store.Publish(ctx, key, []Entry{{ProductID: 1, Score: 10}, {ProductID: 2, Score: 20}}); err != nil {
		t.Fatalf("seed publish: %v", err)
	}

	pub, err := store.BeginPublication(ctx, key)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := pub.Add(ctx, []Entry{{ProductID: 3, Score: 30}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Staged but not committed: readers still see the previous board.
	rows, _, err := store.TopN(ctx, key, 0, 10)
	if err != nil || len(rows) != 2 || rows[0].ProductID != 2 {
		t.Fatalf("pre-commit rows %+v err %v", rows, err)
	}

	if err := pub.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	rows, hasNext, err := store.TopN(ctx, key, 0, 10)
	if err != nil || len(rows) != 1 || rows[0].ProductID != 3 || hasNext {
		t.Fatalf("post-commit rows %+v hasNext=%v err %v", rows, hasNext, err)
	}
	if mr.Exists(key + ":staging") {
		t.Error("staging key must be renamed away")
	}
}

func TestStore_EmptyPublishKeepsPreviousBoard(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	key := "ranking:products:hourly:2025010311"

	if _, err := store.Publish(ctx, key, []Entry{{ProductID: 7, Score: 61.2}}); err != nil {
		t.Fatalf("seed publish: %v", err)
	}
	written, err := store.Publish(ctx, key, nil)
	if err != nil {
		t.Fatalf("empty publish: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d", written)
	}

	rows, _, err := store.TopN(ctx, key, 0, 10)
	if err != nil || len(rows) != 1 || rows[0].ProductID != 7 {
		t.Fatalf("previous board lost: %+v %v", rows, err)
	}
	if mr.Exists(key + ":staging") {
		t.Error("empty publish must not create the staging key")
	}
}

func TestPublication_RepeatedContributionsSum(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	key := "ranking:products:hourly:2025010312"

	// Single-row mode feeds the same product once per metric row; ZINCRBY
	// semantics must sum them on the staging key.
	entries := []Entry{{ProductID: 100, Score: 550.8}, {ProductID: 100, Score: 48.96}}
	if _, err := store.Publish(ctx, key, entries); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rows, _, err := store.TopN(ctx, key, 0, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows %+v err %v", rows, err)
	}
	if diff := rows[0].Score - 599.76; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score %v, want 599.76", rows[0].Score)
	}
}

func TestStore_Rank(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	key := "ranking:products:hourly:2025010313"

	if _, err := store.Publish(ctx, key, []Entry{{ProductID: 1, Score: 5}, {ProductID: 2, Score: 9}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rank, err := store.Rank(ctx, key, 1)
	if err != nil || rank == nil || *rank != 2 {
		t.Errorf("rank(1) = %v, %v; want 2", rank, err)
	}
	rank, err = store.Rank(ctx, key, 999)
	if err != nil || rank != nil {
		t.Errorf("rank of unranked product = %v, %v; want nil", rank, err)
	}
}
