package cmdutils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/schema"
)

func TestServerAddr(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "127.0.0.1:18790", ServerAddr(&cfg, ""))
	assert.Equal(t, "example.com:80", ServerAddr(&cfg, "example.com:80"))

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", ServerAddr(&cfg, ""))
}

func TestPrintState(t *testing.T) {
	var buf bytes.Buffer
	PrintState(&buf, schema.PhaseConnected, "connected", 4, time.Now())
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "✓ connected"), out)
	assert.Contains(t, out, "#4")
	assert.True(t, strings.HasSuffix(out, "connected\n"))

	buf.Reset()
	PrintPairingCode(&buf, "")
	assert.Empty(t, buf.String())
}
