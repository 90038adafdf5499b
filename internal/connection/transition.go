package connection

import (
	"github.com/crystaldolphin/wadash/internal/schema"
	"github.com/crystaldolphin/wadash/internal/shared/stringutils"
)

// maxMessageLen bounds driver-supplied text copied into a state message.
const maxMessageLen = 200

type transitionKind int

const (
	kindStart transitionKind = iota
	kindRestart
	kindPairingReady
	kindPairingExpired
	kindAuthenticated
	kindDisconnected
	kindFailure
)

func (k transitionKind) String() string {
	switch k {
	case kindStart:
		return "start"
	case kindRestart:
		return "restart"
	case kindPairingReady:
		return "pairing_ready"
	case kindPairingExpired:
		return "pairing_expired"
	case kindAuthenticated:
		return "authenticated"
	case kindDisconnected:
		return "disconnected"
	case kindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// transition is one queued request to move the session.
type transition struct {
	kind   transitionKind
	token  string // kindPairingReady
	reason string // kindDisconnected, kindFailure, kindRestart (source)
}

// driverCommand is the side effect issued after a transition commits.
type driverCommand int

const (
	cmdNone driverCommand = iota
	cmdConnect
	cmdReconnect
)

// nextState computes the state that t moves cur into. ok is false when t does
// not apply to cur and nothing should be committed.
//
// Driver reports are authoritative and apply from any phase, except a pairing
// expiry (meaningful only while awaiting pairing) and repeats of the current state.
func nextState(cur schema.ConnectionState, t transition, driverStarted bool) (next schema.ConnectionState, cmd driverCommand, ok bool) {
	switch t.kind {
	case kindStart, kindRestart:
		msg := "connecting"
		if t.kind == kindRestart && t.reason != "" {
			msg = "restart requested by " + t.reason
		}
		cmd = cmdReconnect
		if !driverStarted {
			cmd = cmdConnect
		}
		return schema.NewConnecting(msg), cmd, true

	case kindPairingReady:
		if t.token == "" {
			return cur, cmdNone, false
		}
		next = schema.NewAwaitingPairing(t.token, "scan the pairing code to link this device")

	case kindPairingExpired:
		if !cur.Is(schema.PhaseAwaitingPairing) {
			return cur, cmdNone, false
		}
		return schema.NewConnecting("pairing code expired, waiting for a new one"), cmdNone, true

	case kindAuthenticated:
		next = schema.NewConnected("connected")

	case kindDisconnected:
		reason := t.reason
		if reason == "" {
			reason = "disconnected"
		}
		next = schema.NewDisconnected(stringutils.Truncate(reason, maxMessageLen))

	case kindFailure:
		reason := t.reason
		if reason == "" {
			reason = "unknown driver failure"
		}
		next = schema.NewFailed(stringutils.Truncate(reason, maxMessageLen))

	default:
		return cur, cmdNone, false
	}

	if next.SameAs(cur) {
		return cur, cmdNone, false
	}
	return next, cmdNone, true
}
