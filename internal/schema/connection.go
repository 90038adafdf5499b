package schema

import (
	"fmt"
	"time"
)

// Phase is the lifecycle phase of the messaging-platform connection.
type Phase string

const (
	PhaseDisconnected    Phase = "disconnected"
	PhaseConnecting      Phase = "connecting"
	PhaseAwaitingPairing Phase = "awaiting_pairing"
	PhaseConnected       Phase = "connected"
	PhaseFailed          Phase = "failed"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseDisconnected,
	PhaseConnecting,
	PhaseAwaitingPairing,
	PhaseConnected,
	PhaseFailed,
}

// ParsePhase maps a config or wire string to a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// ConnectionState is an immutable snapshot of the connection.
// The pairing token is set only in PhaseAwaitingPairing.
type ConnectionState struct {
	phase        Phase
	message      string
	pairingToken string
	seq          uint64
	since        time.Time
}

func NewDisconnected(message string) ConnectionState {
	return ConnectionState{phase: PhaseDisconnected, message: message}
}

func NewConnecting(message string) ConnectionState {
	return ConnectionState{phase: PhaseConnecting, message: message}
}

// NewAwaitingPairing returns an AwaitingPairing state carrying token.
// Callers must reject empty tokens before calling it.
func NewAwaitingPairing(token, message string) ConnectionState {
	return ConnectionState{phase: PhaseAwaitingPairing, message: message, pairingToken: token}
}

func NewConnected(message string) ConnectionState {
	return ConnectionState{phase: PhaseConnected, message: message}
}

func NewFailed(message string) ConnectionState {
	return ConnectionState{phase: PhaseFailed, message: message}
}

func (s ConnectionState) Phase() Phase          { return s.phase }
func (s ConnectionState) Message() string       { return s.message }
func (s ConnectionState) PairingToken() string  { return s.pairingToken }
func (s ConnectionState) Seq() uint64           { return s.seq }
func (s ConnectionState) Since() time.Time      { return s.since }
func (s ConnectionState) Is(p Phase) bool       { return s.phase == p }
func (s ConnectionState) HasPairingToken() bool { return s.pairingToken != "" }

// Stamped returns a copy of s carrying the commit sequence number and time.
func (s ConnectionState) Stamped(seq uint64, at time.Time) ConnectionState {
	s.seq = seq
	s.since = at
	return s
}

// SameAs reports whether s and o describe the same phase, message and token,
// ignoring commit metadata.
func (s ConnectionState) SameAs(o ConnectionState) bool {
	return s.phase == o.phase && s.message == o.message && s.pairingToken == o.pairingToken
}

// String renders the state for logs. The pairing token is never included.
func (s ConnectionState) String() string {
	if s.message == "" {
		return fmt.Sprintf("%s#%d", s.phase, s.seq)
	}
	return fmt.Sprintf("%s#%d (%s)", s.phase, s.seq, s.message)
}
