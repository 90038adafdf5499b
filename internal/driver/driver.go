// Package driver holds the messaging-platform connection for the session.
//
// Drivers are passive: they dial only when the session issues Connect or
// TeardownAndReconnect, and report what happens through schema.DriverHandler.
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/schema"
)

// New builds the driver selected by cfg.Driver.Kind.
func New(cfg *config.Config) (schema.Driver, error) {
	switch cfg.Driver.Kind {
	case config.DriverBridge, "":
		return NewBridgeDriver(cfg.Channels.WhatsApp)
	case config.DriverMock:
		return NewMockDriver(cfg.Driver.Mock), nil
	default:
		return nil, fmt.Errorf("unknown driver kind %q", cfg.Driver.Kind)
	}
}

// trigger coalesces connection requests into attempts run one at a time.
type trigger struct {
	cmds chan struct{} // cap 1

	mu     sync.Mutex
	cancel context.CancelFunc // current attempt
}

func newTrigger() *trigger {
	return &trigger{cmds: make(chan struct{}, 1)}
}

// fire requests an attempt without blocking.
func (t *trigger) fire() {
	select {
	case t.cmds <- struct{}{}:
	default:
	}
}

// teardown cancels the current attempt and requests a new one.
func (t *trigger) teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.fire()
}

// next blocks until an attempt is requested. The returned finish func must be
// called when the attempt ends; it reports whether the attempt was torn down.
func (t *trigger) next(ctx context.Context) (context.Context, func() bool, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-t.cmds:
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	// A request queued before this point is satisfied by the fresh attempt.
	select {
	case <-t.cmds:
	default:
	}
	t.cancel = cancel
	t.mu.Unlock()

	finish := func() bool {
		t.mu.Lock()
		t.cancel = nil
		t.mu.Unlock()
		torndown := attemptCtx.Err() != nil && ctx.Err() == nil
		cancel()
		return torndown
	}
	return attemptCtx, finish, nil
}
