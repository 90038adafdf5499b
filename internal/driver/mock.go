package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/schema"
)

// MockDriver simulates a pairing flow for local development.
//
// Each attempt issues a fresh pairing token every interval. After pairAfter
// rounds the device counts as linked and the driver reports authentication.
// The rounds in between end with a pairing expiry.
type MockDriver struct {
	interval  time.Duration
	pairAfter int
	trigger   *trigger
}

func NewMockDriver(cfg config.MockDriverConfig) *MockDriver {
	interval := cfg.PairingInterval.Std()
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &MockDriver{
		interval:  interval,
		pairAfter: cfg.PairAfter,
		trigger:   newTrigger(),
	}
}

func (m *MockDriver) Name() string { return "mock" }

func (m *MockDriver) Connect() { m.trigger.fire() }

func (m *MockDriver) TeardownAndReconnect() { m.trigger.teardown() }

// Run serves attempts until ctx is cancelled.
func (m *MockDriver) Run(ctx context.Context, h schema.DriverHandler) error {
	slog.Info("mock: driver ready", "interval", m.interval, "pairAfter", m.pairAfter)
	for {
		attemptCtx, finish, err := m.trigger.next(ctx)
		if err != nil {
			return err
		}
		m.attempt(attemptCtx, h)
		finish()
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// attempt runs one pairing flow and, once authenticated, holds the session
// until ctx ends.
func (m *MockDriver) attempt(ctx context.Context, h schema.DriverHandler) {
	for round := 1; round <= m.pairAfter; round++ {
		h.OnPairingReady("mock@" + uuid.NewString())
		if !sleep(ctx, m.interval) {
			return
		}
		if round < m.pairAfter {
			h.OnPairingExpired()
		}
	}
	h.OnAuthenticated()
	<-ctx.Done()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
