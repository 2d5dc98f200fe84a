// Package events provides the in-process fan-out of committed aggregate changes.
package events

import (
	"log/slog"
	"sync"

	"github.com/ghozitech/ledger/internal/model"
)

// Buffer size for each subscriber channel
const defaultBufferSize = 64

// Publisher is implemented by anything that accepts committed change events
type Publisher interface {
	Publish(evt model.Event)
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event, so consumers must treat every
// event as "something changed" rather than as a delta.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan model.Event
	nextID int
	closed bool
	logger *slog.Logger
}

// NewBus creates a new Bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan model.Event),
		logger: logger.With(slog.String("component", "event-bus")),
	}
}

// Publish delivers evt to every subscriber without blocking
func (b *Bus) Publish(evt model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("event dropped - subscriber buffer full",
				slog.Int("subscriber", id),
				slog.String("type", string(evt.Type)))
		}
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// SubscriberCount returns the number of live subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later publishes are ignored
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// Ensure Bus implements Publisher
var _ Publisher = (*Bus)(nil)
