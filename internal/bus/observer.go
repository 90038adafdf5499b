package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/crystaldolphin/wadash/internal/schema"
)

var (
	// ErrClosed is returned by Observer.Next after the observer was unsubscribed.
	ErrClosed = errors.New("bus: observer closed")
	// ErrSlowObserver is returned by Observer.Next after the observer was
	// evicted for letting its backlog grow past the limit.
	ErrSlowObserver = errors.New("bus: observer backlog limit exceeded")
)

// Observer is one subscriber's ordered delivery queue.
// Only the bus writes to it; only its owner reads from it.
type Observer struct {
	id    string
	limit int // 0 = unbounded

	mu     sync.Mutex
	queue  []schema.ConnectionState
	err    error
	notify chan struct{} // cap 1; signalled on push
	done   chan struct{} // closed on close
}

func newObserver(limit int) *Observer {
	return &Observer{
		id:     uuid.NewString(),
		limit:  limit,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (o *Observer) ID() string { return o.id }

// Pending returns the number of queued states not yet read.
func (o *Observer) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Err returns the reason the observer was closed, or nil while it is live.
func (o *Observer) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed once the observer is closed.
func (o *Observer) Done() <-chan struct{} { return o.done }

// Next blocks until the next state is available, the observer is closed, or
// ctx is done. States come out in exactly the order they were published.
func (o *Observer) Next(ctx context.Context) (schema.ConnectionState, error) {
	for {
		o.mu.Lock()
		if o.err != nil {
			err := o.err
			o.mu.Unlock()
			return schema.ConnectionState{}, err
		}
		if len(o.queue) > 0 {
			s := o.queue[0]
			o.queue[0] = schema.ConnectionState{}
			o.queue = o.queue[1:]
			o.mu.Unlock()
			return s, nil
		}
		o.mu.Unlock()

		select {
		case <-o.notify:
		case <-o.done:
		case <-ctx.Done():
			return schema.ConnectionState{}, ctx.Err()
		}
	}
}

// push appends s. It reports false when the observer is closed or full.
func (o *Observer) push(s schema.ConnectionState) bool {
	o.mu.Lock()
	if o.err != nil || (o.limit > 0 && len(o.queue) >= o.limit) {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, s)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return true
}

// close discards the queue and records why. Only the first call has effect.
func (o *Observer) close(reason error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return false
	}
	o.err = reason
	o.queue = nil
	close(o.done)
	return true
}
