// Package gateway accepts restart commands and hands them to the session.
package gateway

import (
	"log/slog"
	"sync/atomic"
)

// Restarter queues a restart transition without blocking.
// Implemented by connection.Session.
type Restarter interface {
	Restart(source string) bool
}

// Gateway is the single entry point for restart requests from observers,
// the HTTP API and background services. Restart is advisory: a request made
// after shutdown is dropped and only logged.
type Gateway struct {
	target   Restarter
	accepted atomic.Uint64
	dropped  atomic.Uint64
}

func New(target Restarter) *Gateway {
	return &Gateway{target: target}
}

// RequestRestart queues a restart and returns immediately.
func (g *Gateway) RequestRestart(source string) {
	if source == "" {
		source = "unknown"
	}
	if !g.target.Restart(source) {
		g.dropped.Add(1)
		slog.Debug("gateway: session closed, restart dropped", "source", source)
		return
	}
	g.accepted.Add(1)
	slog.Info("gateway: restart accepted", "source", source)
}

// Stats returns how many requests were accepted and dropped so far.
func (g *Gateway) Stats() (accepted, dropped uint64) {
	return g.accepted.Load(), g.dropped.Load()
}
