// Package bus fans connection state changes out to every attached observer.
package bus

import (
	"log/slog"
	"sync"

	"github.com/crystaldolphin/wadash/internal/schema"
)

// DefaultBacklog is the per-observer queue limit used when none is configured.
const DefaultBacklog = 256

// Bus is the in-process publish/subscribe fan-out of connection states.
//
// Delivery is unordered across observers and strictly ordered per observer.
// Publish never blocks on a consumer: a queue that grows past the backlog limit
// gets its observer evicted instead of losing a state.
type Bus struct {
	mu        sync.Mutex
	observers map[string]*Observer
	backlog   int
}

// New creates a Bus. backlog <= 0 selects DefaultBacklog.
func New(backlog int) *Bus {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Bus{
		observers: make(map[string]*Observer),
		backlog:   backlog,
	}
}

// Subscribe registers a new observer whose first message is initial.
// It never sees anything published before this call.
func (b *Bus) Subscribe(initial schema.ConnectionState) *Observer {
	o := newObserver(b.backlog)
	o.push(initial)

	b.mu.Lock()
	b.observers[o.id] = o
	b.mu.Unlock()

	slog.Debug("bus: observer subscribed", "observer", o.id)
	return o
}

// Unsubscribe removes o and discards its queue. Safe to call more than once
// and concurrently with Publish.
func (b *Bus) Unsubscribe(o *Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	delete(b.observers, o.id)
	b.mu.Unlock()

	if o.close(ErrClosed) {
		slog.Debug("bus: observer unsubscribed", "observer", o.id)
	}
}

// Publish appends s to every registered observer's queue.
func (b *Bus) Publish(s schema.ConnectionState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, o := range b.observers {
		if o.push(s) {
			continue
		}
		delete(b.observers, id)
		if o.close(ErrSlowObserver) {
			slog.Warn("bus: observer too slow, evicting", "observer", id, "backlog", b.backlog)
		}
	}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}
