package schema

import "context"

// DriverHandler receives lifecycle callbacks from a Driver.
// Implemented by connection.Session. Defined here to avoid an import cycle.
type DriverHandler interface {
	// OnPairingReady reports a fresh pairing credential (e.g. a QR payload).
	OnPairingReady(token string)
	// OnPairingExpired reports that the current pairing credential timed out
	// before it was used; the driver issues a new one on its own.
	OnPairingExpired()
	// OnAuthenticated reports a successful login.
	OnAuthenticated()
	// OnDisconnected reports that the platform connection went away.
	OnDisconnected(reason string)
	// OnFailure reports an unrecoverable error for the current attempt.
	OnFailure(err error)
}

// Driver talks to the messaging platform on behalf of the session.
//
// Connect and TeardownAndReconnect must not block: they only signal the
// driver's own goroutine, which is started with Run.
type Driver interface {
	// Name returns the driver identifier (e.g. "bridge").
	Name() string
	// Run services connection attempts and reports to h; it blocks until ctx is cancelled.
	Run(ctx context.Context, h DriverHandler) error
	// Connect starts the first connection attempt.
	Connect()
	// TeardownAndReconnect drops any current connection and dials again.
	TeardownAndReconnect()
}

// CommandGateway accepts restart requests from observers and background services.
// Implemented by gateway.Gateway.
type CommandGateway interface {
	RequestRestart(source string)
}

// StateSource exposes the current connection state.
type StateSource interface {
	Current() ConnectionState
}
