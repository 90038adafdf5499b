// Package observer binds dashboard WebSocket clients to the connection session.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystaldolphin/wadash/internal/bus"
	"github.com/crystaldolphin/wadash/internal/schema"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are tiny commands.
	maxMessageSize = 4096
)

// Attacher hands out observers of the connection state.
// Implemented by connection.Session.
type Attacher interface {
	Attach() *bus.Observer
	Detach(o *bus.Observer)
}

// Handler upgrades HTTP requests to observer sockets. One socket is one
// observer: it gets the current state first, then every later transition, and
// may send restart commands which go to the gateway.
type Handler struct {
	session  Attacher
	gateway  schema.CommandGateway
	upgrader websocket.Upgrader

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewHandler creates a Handler. checkOrigin may be nil to accept same-origin
// requests only (gorilla's default).
func NewHandler(session Attacher, gateway schema.CommandGateway, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		session: session,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		writeWait:  writeWait,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("observer: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.serve(r.Context(), conn, r.RemoteAddr)
}

// serve runs one observer until the client goes away or ctx is done.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, remote string) {
	obs := h.session.Attach()
	log := slog.With("observer", obs.ID(), "remote", remote)
	log.Info("observer: attached")

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.Close() // unblocks readPump
		h.writePump(ctx, conn, obs, log)
	}()

	h.readPump(conn, obs, log)

	cancel()
	h.session.Detach(obs)
	conn.Close()
	wg.Wait()
	log.Info("observer: detached")
}

func (h *Handler) readPump(conn *websocket.Conn, obs *bus.Observer, log *slog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("observer: read failed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		h.handleInbound(raw, obs, log)
	}
}

func (h *Handler) handleInbound(raw []byte, obs *bus.Observer, log *slog.Logger) {
	var env RawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug("observer: ignoring malformed frame", "err", err)
		return
	}
	switch env.Type {
	case MsgRestart:
		h.gateway.RequestRestart("observer:" + obs.ID())
	default:
		log.Debug("observer: ignoring frame", "type", env.Type)
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, obs *bus.Observer, log *slog.Logger) {
	nextPing := time.Now().Add(h.pingPeriod)
	for {
		wait := time.Until(nextPing)
		if wait <= 0 {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				log.Debug("observer: ping failed", "err", err)
				return
			}
			nextPing = time.Now().Add(h.pingPeriod)
			continue
		}

		nctx, ncancel := context.WithTimeout(ctx, wait)
		st, err := obs.Next(nctx)
		ncancel()
		switch {
		case err == nil:
			if err := h.writeState(conn, st); err != nil {
				log.Warn("observer: write failed", "seq", st.Seq(), "err", err)
				return
			}
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			// ping is due
		case errors.Is(err, bus.ErrSlowObserver):
			log.Warn("observer: evicted for falling behind")
			h.writeClose(conn, websocket.CloseTryAgainLater, "too slow")
			return
		default:
			h.writeClose(conn, websocket.CloseGoingAway, "")
			return
		}
	}
}

func (h *Handler) writeState(conn *websocket.Conn, st schema.ConnectionState) error {
	frames, err := EncodeState(st)
	if err != nil {
		return err
	}
	for _, f := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeWait))
}
