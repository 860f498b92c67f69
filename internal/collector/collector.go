// Package collector turns the product activity event stream into hourly
// metric rows. Events are folded into per (hour, product) deltas in memory
// and flushed to the database on a timer, so a burst of views costs one
// upsert instead of thousands.
package collector

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"shoprank/internal/eventbus"
	"shoprank/internal/ranking"
	"shoprank/internal/repository"
)

const eventBuffer = 4096

// MetricWriter is the sink for flushed deltas. *repository.Repository
// satisfies it.
type MetricWriter interface {
	BatchAccumulate(ctx context.Context, deltas []repository.MetricDelta) error
}

type bucketKey struct {
	statHour  time.Time
	productID int64
}

// Collector subscribes to the event bus and accumulates metric deltas.
// Run owns all state; there is no locking because a single goroutine
// consumes the channels.
type Collector struct {
	writer        MetricWriter
	flushInterval time.Duration
	events        chan eventbus.Event
	pending       map[bucketKey]*repository.MetricDelta
}

func New(bus *eventbus.Bus, writer MetricWriter, flushInterval time.Duration) *Collector {
	c := &Collector{
		writer:        writer,
		flushInterval: flushInterval,
		events:        make(chan eventbus.Event, eventBuffer),
		pending:       make(map[bucketKey]*repository.MetricDelta),
	}
	bus.Subscribe(eventbus.ProductViewed, c.events)
	bus.Subscribe(eventbus.ProductLiked, c.events)
	bus.Subscribe(eventbus.ProductUnliked, c.events)
	bus.Subscribe(eventbus.OrderCompleted, c.events)
	return c
}

// Run consumes events until ctx is cancelled, then drains the channel and
// performs a final flush.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	log.Printf("[collector] started, flush interval %s", c.flushInterval)
	for {
		select {
		case evt := <-c.events:
			c.fold(evt)
		case <-ticker.C:
			c.flush(ctx)
		case <-ctx.Done():
			for {
				select {
				case evt := <-c.events:
					c.fold(evt)
				default:
					// Shutdown flush runs on a fresh context; ctx is already done.
					flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					c.flush(flushCtx)
					cancel()
					log.Printf("[collector] stopped")
					return
				}
			}
		}
	}
}

func (c *Collector) fold(evt eventbus.Event) {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	statHour := ts.In(ranking.KST()).Truncate(time.Hour)

	switch data := evt.Data.(type) {
	case eventbus.ProductViewedV1:
		c.delta(statHour, data.ProductID).ViewDelta++
	case eventbus.ProductLikedV1:
		if evt.Type == eventbus.ProductUnliked {
			c.delta(statHour, data.ProductID).LikeDelta--
		} else {
			c.delta(statHour, data.ProductID).LikeDelta++
		}
	case eventbus.OrderCompletedV1:
		amount, err := decimal.NewFromString(data.Amount)
		if err != nil {
			log.Printf("[collector] order %d: bad amount %q: %v", data.OrderID, data.Amount, err)
			return
		}
		d := c.delta(statHour, data.ProductID)
		d.OrderAmount = d.OrderAmount.Add(amount)
	default:
		log.Printf("[collector] ignoring %s with payload %T", evt.Type, evt.Data)
	}
}

func (c *Collector) delta(statHour time.Time, productID int64) *repository.MetricDelta {
	k := bucketKey{statHour: statHour, productID: productID}
	d, ok := c.pending[k]
	if !ok {
		d = &repository.MetricDelta{StatHour: statHour, ProductID: productID}
		c.pending[k] = d
	}
	return d
}

func (c *Collector) flush(ctx context.Context) {
	if len(c.pending) == 0 {
		return
	}

	deltas := make([]repository.MetricDelta, 0, len(c.pending))
	for _, d := range c.pending {
		deltas = append(deltas, *d)
	}

	if err := c.writer.BatchAccumulate(ctx, deltas); err != nil {
		// Keep the buckets; the upsert is additive and idempotent per flush,
		// so retrying the same deltas next tick is safe.
		log.Printf("[collector] flush of %d buckets failed, retrying next tick: %v", len(deltas), err)
		return
	}
	c.pending = make(map[bucketKey]*repository.MetricDelta)
	log.Printf("[collector] flushed %d metric buckets", len(deltas))
}
