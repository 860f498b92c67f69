package eventbus

import (
	"sync"
	"time"
)

// EventType names a product activity event routed through the bus.
type EventType string

const (
	ProductViewed  EventType = "product.viewed"
	ProductLiked   EventType = "product.liked"
	ProductUnliked EventType = "product.unliked"
	OrderCompleted EventType = "order.completed"
)

// ProductViewedV1 is published once per successful product detail read.
type ProductViewedV1 struct {
	ProductID int64
	UserID    *int64
}

// ProductLikedV1 is published when a user likes a product. Unlikes reuse
// the same payload under the product.unliked type.
type ProductLikedV1 struct {
	ProductID int64
	UserID    int64
}

// OrderCompletedV1 carries one order line. Multi-line orders publish one
// event per line.
type OrderCompletedV1 struct {
	OrderID   int64
	ProductID int64
	Quantity  int64
	Amount    string // decimal string, e.g. "1020.00"
}

// Event is one product activity occurrence routed through the bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// Bus is an in-process event bus that routes events to subscribers
// based on event type. It uses Go channels for delivery and is
// safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan<- Event
	closed      bool
}

// New creates a new Bus ready for use.
func New() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]chan<- Event),
	}
}

// Subscribe registers a channel to receive events of the given type.
// The caller is responsible for creating the channel with sufficient
// buffer capacity; slow subscribers will have events dropped.
func (b *Bus) Subscribe(eventType EventType, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
}

// Publish sends an event to all subscribers registered for that event type.
// If a subscriber's channel is full, the event is dropped for that subscriber.
// Publish is a no-op after Close has been called.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[evt.Type] {
		select {
		case ch <- evt:
		default:
			// drop if subscriber is slow
		}
	}
}

// Close marks the bus as closed. After Close, Publish is a no-op.
// Close does not close subscriber channels; that is the caller's responsibility.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
