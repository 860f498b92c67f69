// Package rankstore holds the live rankings: one Redis sorted set per
// period bucket, members are product-id strings scored by doubles.
package rankstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shoprank/internal/ranking"
)

// liveTTL bounds how long an abandoned bucket key survives. Buckets roll
// over hourly/daily, so a day is plenty.
const liveTTL = 24 * time.Hour

// publishChunk is the pipeline size for staging writes.
const publishChunk = 500

// Entry is one (product, score) pair bound for a sorted set.
type Entry struct {
	ProductID int64
	Score     float64
}

// RankedEntry is one row read back out of a sorted set.
type RankedEntry struct {
	Rank      int
	ProductID int64
	Score     float64
}

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Publication writes a new ranking into a staging key and atomically
// renames it over the live key on Commit. Abandoning a Publication (job
// failure) leaves the previous live key serving.
type Publication interface {
	// Add ZINCRBYs a chunk of entries into the staging key, so repeated
	// contributions for the same product sum.
	Add(ctx context.Context, entries []Entry) error
	// Commit renames staging over live and sets the live TTL. With zero
	// entries written it does nothing: the staging key was never created
	// and the previous live key must keep serving.
	Commit(ctx context.Context) error
	// Written is the number of entries added so far.
	Written() int
}

type publication struct {
	rdb        *redis.Client
	liveKey    string
	stagingKey string
	written    int
}

// BeginPublication clears any staging leftovers from a previously failed
// run and returns a Publication for the given live key.
func (s *Store) BeginPublication(ctx context.Context, liveKey string) (Publication, error) {
	stagingKey := ranking.StagingKey(liveKey)
	if err := s.rdb.Del(ctx, stagingKey).Err(); err != nil {
		return nil, fmt.Errorf("clear staging key %s: %w", stagingKey, err)
	}
	return &publication{rdb: s.rdb, liveKey: liveKey, stagingKey: stagingKey}, nil
}

func (p *publication) Add(ctx context.Context, entries []Entry) error {
	for start := 0; start < len(entries); start += publishChunk {
		end := start + publishChunk
		if end > len(entries) {
			end = len(entries)
		}
		_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, e := range entries[start:end] {
				pipe.ZIncrBy(ctx, p.stagingKey, e.Score, strconv.FormatInt(e.ProductID, 10))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("stage %d entries into %s: %w", end-start, p.stagingKey, err)
		}
		p.written += end - start
	}
	return nil
}

func (p *publication) Commit(ctx context.Context) error {
	if p.written == 0 {
		return nil
	}
	// RENAME is the publish barrier: readers observe either the old or the
	// new ranking, never a partially populated one.
	if err := p.rdb.Rename(ctx, p.stagingKey, p.liveKey).Err(); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", p.stagingKey, p.liveKey, err)
	}
	if err := p.rdb.Expire(ctx, p.liveKey, liveTTL).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", p.liveKey, err)
	}
	return nil
}

func (p *publication) Written() int {
	return p.written
}

// Publish is the non-chunked convenience path: stage everything, commit.
func (s *Store) Publish(ctx context.Context, liveKey string, entries []Entry) (int, error) {
	pub, err := s.BeginPublication(ctx, liveKey)
	if err != nil {
		return 0, err
	}
	if err := pub.Add(ctx, entries); err != nil {
		return 0, err
	}
	if err := pub.Commit(ctx); err != nil {
		return 0, err
	}
	return pub.Written(), nil
}

// Rank returns the 1-based descending rank of a product in a live key, or
// nil when the product is not in the set.
func (s *Store) Rank(ctx context.Context, liveKey string, productID int64) (*int64, error) {
	rank, err := s.rdb.ZRevRank(ctx, liveKey, strconv.FormatInt(productID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("zrevrank %s %d: %w", liveKey, productID, err)
	}
	r := rank + 1
	return &r, nil
}

// TopN returns one page of a live ranking in descending score order, plus
// whether more members follow the page.
func (s *Store) TopN(ctx context.Context, liveKey string, page, size int) ([]RankedEntry, bool, error) {
	start := int64(page) * int64(size)
	end := start + int64(size) - 1

	zs, err := s.rdb.ZRevRangeWithScores(ctx, liveKey, start, end).Result()
	if err != nil {
		return nil, false, fmt.Errorf("zrevrange %s [%d, %d]: %w", liveKey, start, end, err)
	}

	out := make([]RankedEntry, 0, len(zs))
	for i, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, false, fmt.Errorf("unexpected member type %T in %s", z.Member, liveKey)
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse member %q in %s: %w", member, liveKey, err)
		}
		out = append(out, RankedEntry{
			Rank:      int(start) + i + 1,
			ProductID: id,
			Score:     z.Score,
		})
	}

	total, err := s.rdb.ZCard(ctx, liveKey).Result()
	if err != nil {
		return nil, false, fmt.Errorf("zcard %s: %w", liveKey, err)
	}
	return out, total > end+1, nil
}
