// Package notify forwards selected connection transitions to chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crystaldolphin/wadash/internal/bus"
	"github.com/crystaldolphin/wadash/internal/schema"
)

const defaultSendTimeout = 10 * time.Second

// Sender delivers one notification text to an external channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Attacher is the part of connection.Session the notifier needs.
type Attacher interface {
	Attach() *bus.Observer
	Detach(o *bus.Observer)
}

// Notifier is an internal observer. It never sends the state that was
// current when it attached, only transitions committed afterwards.
type Notifier struct {
	session     Attacher
	senders     []Sender
	phases      map[schema.Phase]bool
	sendTimeout time.Duration

	lastSeq uint64
}

func New(session Attacher, senders []Sender, phases []schema.Phase) *Notifier {
	set := make(map[schema.Phase]bool, len(phases))
	for _, p := range phases {
		set[p] = true
	}
	return &Notifier{
		session:     session,
		senders:     senders,
		phases:      set,
		sendTimeout: defaultSendTimeout,
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

// Start streams transitions until ctx is cancelled. If the notifier falls
// behind and is evicted by the bus it attaches again.
func (n *Notifier) Start(ctx context.Context) error {
	if !n.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	names := make([]string, len(n.senders))
	for i, s := range n.senders {
		names[i] = s.Name()
	}
	slog.Info("notify: started", "senders", names, "phases", len(n.phases))

	first := true
	for {
		err := n.follow(ctx, first)
		if ctx.Err() != nil {
			slog.Info("notify: stopped")
			return ctx.Err()
		}
		slog.Warn("notify: observer dropped, attaching again", "err", err)
		first = false
	}
}

// follow attaches once and delivers until the observer ends.
func (n *Notifier) follow(ctx context.Context, first bool) error {
	obs := n.session.Attach()
	defer n.session.Detach(obs)

	catchUp, err := obs.Next(ctx)
	if err != nil {
		return err
	}
	if first {
		n.lastSeq = catchUp.Seq()
	} else {
		n.deliver(ctx, catchUp)
	}

	for {
		st, err := obs.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrSlowObserver) {
				return err
			}
			return fmt.Errorf("next state: %w", err)
		}
		n.deliver(ctx, st)
	}
}

func (n *Notifier) deliver(ctx context.Context, st schema.ConnectionState) {
	if st.Seq() <= n.lastSeq {
		return
	}
	n.lastSeq = st.Seq()
	if !n.phases[st.Phase()] {
		return
	}

	text := Format(st)
	for _, s := range n.senders {
		sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
		err := s.Send(sendCtx, text)
		cancel()
		if err != nil {
			slog.Error("notify: send failed", "sender", s.Name(), "seq", st.Seq(), "err", err)
			continue
		}
		slog.Debug("notify: sent", "sender", s.Name(), "seq", st.Seq())
	}
}

// Format renders the notification text for st. The pairing token is never
// included.
func Format(st schema.ConnectionState) string {
	var headline string
	switch st.Phase() {
	case schema.PhaseConnected:
		headline = "WhatsApp connected"
	case schema.PhaseAwaitingPairing:
		headline = "WhatsApp needs pairing: scan the code on the dashboard"
	case schema.PhaseConnecting:
		headline = "WhatsApp connecting"
	case schema.PhaseDisconnected:
		headline = "WhatsApp disconnected"
	case schema.PhaseFailed:
		headline = "WhatsApp connection failed"
	default:
		headline = "WhatsApp " + string(st.Phase())
	}
	if msg := st.Message(); msg != "" {
		return fmt.Sprintf("%s (%s) [#%d]", headline, msg, st.Seq())
	}
	return fmt.Sprintf("%s [#%d]", headline, st.Seq())
}
