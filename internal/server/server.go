// Package server exposes the connection dashboard over HTTP: the observer
// WebSocket, a status snapshot and a restart endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	srvconfig "github.com/crystaldolphin/wadash/internal/config/server"
	"github.com/crystaldolphin/wadash/internal/observer"
	"github.com/crystaldolphin/wadash/internal/schema"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Session is the part of connection.Session the server needs.
type Session interface {
	observer.Attacher
	schema.StateSource
	ObserverCount() int
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Phase     schema.Phase `json:"phase"`
	Message   string       `json:"message"`
	Seq       uint64       `json:"seq"`
	Since     time.Time    `json:"since"`
	QR        string       `json:"qr,omitempty"`
	Observers int          `json:"observers"`
}

// RestartResponse is the body of POST /api/restart.
type RestartResponse struct {
	Accepted bool   `json:"accepted"`
	Source   string `json:"source"`
}

type Server struct {
	addr    string
	session Session
	gateway schema.CommandGateway
	router  *mux.Router

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func New(cfg srvconfig.ServerConfig, session Session, gateway schema.CommandGateway) *Server {
	s := &Server{
		addr:           net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		session:        session,
		gateway:        gateway,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ws", observer.NewHandler(s.session, s.gateway, s.checkOrigin)).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/restart", s.handleRestart).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Start listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("server: listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server: shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("server: serve", "err", err)
	}
	slog.Info("server: stopped")
	return ctx.Err()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.session.Current()
	resp := StatusResponse{
		Phase:     st.Phase(),
		Message:   st.Message(),
		Seq:       st.Seq(),
		Since:     st.Since(),
		Observers: s.session.ObserverCount(),
	}
	if st.Is(schema.PhaseAwaitingPairing) {
		resp.QR = st.PairingToken()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	source := "api"
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		source = "api:" + host
	}
	s.gateway.RequestRestart(source)
	writeJSON(w, http.StatusAccepted, RestartResponse{Accepted: true, Source: source})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: write response", "err", err)
	}
}

// checkOrigin accepts requests without an Origin header, origins listed in
// the config and, when none are listed, same-host and loopback origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
