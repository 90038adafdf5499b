// Package connection owns the lifecycle of the single messaging-platform
// connection and serializes every transition applied to it.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crystaldolphin/wadash/internal/bus"
	"github.com/crystaldolphin/wadash/internal/schema"
)

var (
	// ErrClosed is returned by Run after the session has shut down.
	ErrClosed = errors.New("connection: session closed")
	// ErrRunning is returned by a second concurrent call to Run.
	ErrRunning = errors.New("connection: session already running")
)

// Session is the state machine for the one logical connection.
//
// Transitions are queued in arrival order and applied one at a time by the
// goroutine inside Run. Each commit installs a new immutable state, bumps the
// sequence counter and publishes to the bus under mu, so an Attach snapshot can
// never interleave with a publish.
type Session struct {
	driver schema.Driver
	bus    *bus.Bus
	now    func() time.Time

	mu      sync.Mutex
	current schema.ConnectionState
	seq     uint64

	qmu     sync.Mutex
	pending []transition
	closed  bool
	wake    chan struct{} // cap 1

	running       atomic.Bool
	driverStarted bool // worker goroutine only
	done          chan struct{}
}

// New creates a Session in the Disconnected phase.
func New(d schema.Driver, b *bus.Bus) *Session {
	s := &Session{
		driver: d,
		bus:    b,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.current = schema.NewDisconnected("not started").Stamped(0, s.now())
	return s
}

// Current returns the state installed by the last committed transition.
func (s *Session) Current() schema.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Attach registers a new observer. Its first message is the current state; it
// then receives every later transition in commit order.
func (s *Session) Attach() *bus.Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Subscribe(s.current)
}

// Detach unregisters o and discards its queue.
func (s *Session) Detach(o *bus.Observer) {
	s.bus.Unsubscribe(o)
}

// ObserverCount returns the number of attached observers.
func (s *Session) ObserverCount() int { return s.bus.Len() }

// Done is closed after Run has returned and the session stopped accepting work.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start queues the startup transition (Disconnected -> Connecting).
func (s *Session) Start() bool {
	return s.enqueue(transition{kind: kindStart})
}

// Restart queues a restart transition. It never blocks and reports false when
// the session is already shut down.
func (s *Session) Restart(source string) bool {
	return s.enqueue(transition{kind: kindRestart, reason: source})
}

func (s *Session) OnPairingReady(token string) {
	s.enqueue(transition{kind: kindPairingReady, token: token})
}

func (s *Session) OnPairingExpired() {
	s.enqueue(transition{kind: kindPairingExpired})
}

func (s *Session) OnAuthenticated() {
	s.enqueue(transition{kind: kindAuthenticated})
}

func (s *Session) OnDisconnected(reason string) {
	s.enqueue(transition{kind: kindDisconnected, reason: reason})
}

func (s *Session) OnFailure(err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.enqueue(transition{kind: kindFailure, reason: reason})
}

// Run applies queued transitions until ctx is cancelled. When it returns the
// session is closed: later requests are dropped.
func (s *Session) Run(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.shutdown()

	slog.Info("connection: session running", "driver", s.driver.Name())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := s.dequeue()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.apply(t)
	}
}

func (s *Session) apply(t transition) {
	cur := s.Current()
	next, cmd, ok := nextState(cur, t, s.driverStarted)
	if !ok {
		slog.Debug("connection: transition ignored", "kind", t.kind, "phase", cur.Phase())
		return
	}

	committed := s.commit(next)
	slog.Info("connection: state changed",
		"from", cur.Phase(),
		"to", committed.Phase(),
		"seq", committed.Seq(),
		"trigger", t.kind,
	)

	switch cmd {
	case cmdConnect:
		s.driverStarted = true
		s.driver.Connect()
	case cmdReconnect:
		s.driver.TeardownAndReconnect()
	}
}

func (s *Session) commit(next schema.ConnectionState) schema.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	next = next.Stamped(s.seq, s.now())
	s.current = next
	s.bus.Publish(next)
	return next
}

func (s *Session) enqueue(t transition) bool {
	s.qmu.Lock()
	if s.closed {
		s.qmu.Unlock()
		slog.Debug("connection: session closed, dropping transition", "kind", t.kind)
		return false
	}
	s.pending = append(s.pending, t)
	s.qmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Session) dequeue() (transition, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.pending) == 0 {
		return transition{}, false
	}
	t := s.pending[0]
	s.pending = s.pending[1:]
	return t, true
}

func (s *Session) shutdown() {
	s.qmu.Lock()
	s.closed = true
	dropped := len(s.pending)
	s.pending = nil
	s.qmu.Unlock()

	if dropped > 0 {
		slog.Debug("connection: dropped queued transitions on shutdown", "count", dropped)
	}
	close(s.done)
	slog.Info("connection: session stopped", "seq", s.Current().Seq())
}
