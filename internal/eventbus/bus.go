// Package eventbus fans lifecycle events out to in-process subscribers.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 64

// Bus delivers each published event at most once to every subscriber
// registered at publish time. A subscriber that cannot keep up has the
// event dropped rather than blocking the publisher; there is no replay.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan domain.Event
	nextID  int
	closed  bool
	dropped atomic.Uint64
	logger  zerolog.Logger
}

// New creates an event bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan domain.Event),
		logger: logger.With().Str("component", "event-bus").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its event channel plus
// an unsubscribe function. The channel is closed on unsubscribe and on
// bus close.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	return b.SubscribeBuffered(DefaultBufferSize)
}

// SubscribeBuffered is Subscribe with an explicit channel buffer size.
func (b *Bus) SubscribeBuffered(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers the event to all current subscribers without blocking.
func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Warn().
				Str("event", string(event.Type)).
				Str("address", event.Address).
				Msg("Dropped event for slow subscriber")
		}
	}
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
