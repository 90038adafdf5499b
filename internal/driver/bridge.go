package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystaldolphin/wadash/internal/config/channel"
	"github.com/crystaldolphin/wadash/internal/schema"
)

const bridgeHandshakeTimeout = 10 * time.Second

// bridgeFrame is a message sent by the Node.js Baileys bridge.
type bridgeFrame struct {
	Type   string `json:"type"`
	QR     string `json:"qr,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BridgeDriver holds the WhatsApp connection through the Node.js Baileys bridge.
//
// It dials only when told to. After the socket drops it reports the loss and
// waits for the next Connect or TeardownAndReconnect.
type BridgeDriver struct {
	url     string
	token   string
	dialer  *websocket.Dialer
	trigger *trigger
}

// NewBridgeDriver validates cfg and returns an idle driver.
func NewBridgeDriver(cfg channel.WhatsAppConfig) (*BridgeDriver, error) {
	raw := cfg.BridgeURL
	if raw == "" {
		raw = channel.DefaultWhatsAppConfig().BridgeURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bridge url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("bridge url %q: scheme must be ws or wss", raw)
	}
	return &BridgeDriver{
		url:     raw,
		token:   cfg.BridgeToken,
		dialer:  &websocket.Dialer{HandshakeTimeout: bridgeHandshakeTimeout},
		trigger: newTrigger(),
	}, nil
}

func (b *BridgeDriver) Name() string { return "bridge" }

// Connect asks Run to dial the bridge.
func (b *BridgeDriver) Connect() { b.trigger.fire() }

// TeardownAndReconnect closes the current socket, if any, and asks Run to dial again.
func (b *BridgeDriver) TeardownAndReconnect() { b.trigger.teardown() }

// Run serves dial requests until ctx is cancelled.
func (b *BridgeDriver) Run(ctx context.Context, h schema.DriverHandler) error {
	slog.Info("bridge: driver ready", "url", b.url)
	for {
		attemptCtx, finish, err := b.trigger.next(ctx)
		if err != nil {
			return err
		}

		err = b.connectOnce(attemptCtx, h)
		torndown := finish()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if torndown {
			slog.Debug("bridge: attempt torn down")
			continue
		}
		var dialErr *dialError
		switch {
		case errors.As(err, &dialErr):
			slog.Warn("bridge: dial failed", "err", dialErr.err)
			h.OnFailure(dialErr)
		case err != nil:
			slog.Warn("bridge: connection lost", "err", err)
			h.OnDisconnected(err.Error())
		}
	}
}

type dialError struct{ err error }

func (e *dialError) Error() string { return "bridge unreachable: " + e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

func (b *BridgeDriver) connectOnce(ctx context.Context, h schema.DriverHandler) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return &dialError{err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Info("bridge: connected")

	if b.token != "" {
		auth, _ := json.Marshal(map[string]string{"type": "auth", "token": b.token})
		if err := conn.WriteMessage(websocket.TextMessage, auth); err != nil {
			return fmt.Errorf("send auth: %w", err)
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		b.handleFrame(raw, h)
	}
}

// handleFrame maps one bridge frame to a handler callback. Frames are handled
// in arrival order on the Run goroutine.
func (b *BridgeDriver) handleFrame(raw []byte, h schema.DriverHandler) {
	var f bridgeFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		slog.Debug("bridge: unreadable frame", "err", err)
		return
	}
	switch f.Type {
	case "qr":
		if f.QR == "" {
			return
		}
		slog.Info("bridge: pairing code issued")
		h.OnPairingReady(f.QR)
	case "status":
		slog.Info("bridge: status", "status", f.Status)
		switch f.Status {
		case "connected", "open":
			h.OnAuthenticated()
		case "disconnected", "close", "logged_out":
			h.OnDisconnected("bridge reported " + f.Status)
		case "qr_timeout":
			h.OnPairingExpired()
		}
	case "error":
		slog.Error("bridge: error", "error", f.Error)
		msg := f.Error
		if msg == "" {
			msg = "bridge error"
		}
		h.OnFailure(errors.New(msg))
	}
}
