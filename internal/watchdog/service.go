// Package watchdog requests restarts for a connection that is stuck or down.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/schema"
)

// Restart sources reported to the gateway.
const (
	SourceConnectTimeout = "watchdog:connect-timeout"
	SourceReconnect      = "watchdog:reconnect"
)

// Service polls the session state on a ticker.
//
// It restarts a session that has been Connecting longer than connectTimeout
// and, with autoReconnect on, one that has sat in Disconnected or Failed for
// reconnectDelay. At most one restart is requested per committed state.
type Service struct {
	source  schema.StateSource
	gateway schema.CommandGateway

	interval       time.Duration
	connectTimeout time.Duration
	autoReconnect  bool
	reconnectDelay time.Duration
	now            func() time.Time

	kicked  bool
	kickSeq uint64 // seq of the state the last restart was requested for
}

// NewService creates a watchdog. interval defaults to one second if zero.
func NewService(cfg config.SessionConfig, source schema.StateSource, gateway schema.CommandGateway) *Service {
	interval := cfg.WatchdogInterval.Std()
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		source:         source,
		gateway:        gateway,
		interval:       interval,
		connectTimeout: cfg.ConnectTimeout.Std(),
		autoReconnect:  cfg.AutoReconnect,
		reconnectDelay: cfg.ReconnectDelay.Std(),
		now:            time.Now,
	}
}

// Start runs the watchdog loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("watchdog: started",
		"interval", s.interval,
		"connectTimeout", s.connectTimeout,
		"autoReconnect", s.autoReconnect,
		"reconnectDelay", s.reconnectDelay,
	)

	for {
		select {
		case <-ticker.C:
			s.check()
		case <-ctx.Done():
			slog.Info("watchdog: stopped")
			return ctx.Err()
		}
	}
}

func (s *Service) check() {
	st := s.source.Current()
	if s.kicked && st.Seq() == s.kickSeq {
		return
	}
	// Seq 0 is the state before the session was started.
	if st.Seq() == 0 {
		return
	}
	elapsed := s.now().Sub(st.Since())

	switch st.Phase() {
	case schema.PhaseConnecting:
		if s.connectTimeout > 0 && elapsed >= s.connectTimeout {
			slog.Warn("watchdog: connect timed out", "elapsed", elapsed.Round(time.Second), "seq", st.Seq())
			s.kick(st, SourceConnectTimeout)
		}
	case schema.PhaseDisconnected, schema.PhaseFailed:
		if s.autoReconnect && elapsed >= s.reconnectDelay {
			slog.Info("watchdog: reconnecting", "phase", st.Phase(), "seq", st.Seq())
			s.kick(st, SourceReconnect)
		}
	}
}

func (s *Service) kick(st schema.ConnectionState, source string) {
	s.kicked = true
	s.kickSeq = st.Seq()
	s.gateway.RequestRestart(source)
}
