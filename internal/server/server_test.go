package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/wadash/internal/bus"
	srvconfig "github.com/crystaldolphin/wadash/internal/config/server"
	"github.com/crystaldolphin/wadash/internal/connection"
	"github.com/crystaldolphin/wadash/internal/gateway"
	"github.com/crystaldolphin/wadash/internal/schema"
)

type nopDriver struct{}

func (nopDriver) Name() string { return "nop" }
func (nopDriver) Run(ctx context.Context, _ schema.DriverHandler) error {
	<-ctx.Done()
	return ctx.Err()
}
func (nopDriver) Connect()              {}
func (nopDriver) TeardownAndReconnect() {}

func newTestServer(t *testing.T, cfg srvconfig.ServerConfig) (*connection.Session, *Server) {
	t.Helper()
	sess := connection.New(nopDriver{}, bus.New(0))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sess.Run(ctx) }()
	t.Cleanup(cancel)
	return sess, New(cfg, sess, gateway.New(sess))
}

func getStatus(t *testing.T, url string) StatusResponse {
	t.Helper()
	resp, err := http.Get(url + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestStatus_ReportsCurrentState(t *testing.T) {
	sess, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	st := getStatus(t, ts.URL)
	assert.Equal(t, schema.PhaseDisconnected, st.Phase)
	assert.Empty(t, st.QR)

	sess.Start()
	sess.OnPairingReady("2@qr")
	require.Eventually(t, func() bool {
		return sess.Current().Is(schema.PhaseAwaitingPairing)
	}, time.Second, 5*time.Millisecond)

	st = getStatus(t, ts.URL)
	assert.Equal(t, schema.PhaseAwaitingPairing, st.Phase)
	assert.Equal(t, "2@qr", st.QR)
	assert.Equal(t, uint64(2), st.Seq)

	sess.OnAuthenticated()
	require.Eventually(t, func() bool {
		return sess.Current().Is(schema.PhaseConnected)
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, getStatus(t, ts.URL).QR)
}

func TestRestart_Accepted(t *testing.T) {
	sess, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/restart", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body RestartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Accepted)
	assert.True(t, strings.HasPrefix(body.Source, "api"))

	assert.Eventually(t, func() bool {
		return sess.Current().Is(schema.PhaseConnecting)
	}, time.Second, 5*time.Millisecond)
}

func TestRestart_WrongMethod(t *testing.T) {
	_, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/restart")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	_, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialWS(ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, h)
}

func TestWS_OriginCheck(t *testing.T) {
	_, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWS(ts, "")
	require.NoError(t, err)
	conn.Close()

	conn, _, err = dialWS(ts, "http://localhost:5173")
	require.NoError(t, err)
	conn.Close()

	_, resp, err := dialWS(ts, "https://evil.example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWS_AllowedOriginsList(t *testing.T) {
	cfg := srvconfig.DefaultServerConfig()
	cfg.AllowedOrigins = []string{"https://dash.example.com", " "}
	_, s := newTestServer(t, cfg)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWS(ts, "https://dash.example.com")
	require.NoError(t, err)
	conn.Close()

	_, _, err = dialWS(ts, "http://localhost:5173")
	assert.Error(t, err)
}

func TestWS_StreamsStatus(t *testing.T) {
	_, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWS(ts, "")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "status_change", env.Type)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	_, s := newTestServer(t, srvconfig.DefaultServerConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
