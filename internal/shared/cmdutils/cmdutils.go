// Package cmdutils holds output and addressing helpers shared by the CLI commands.
package cmdutils

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/schema"
)

var phaseMarks = map[schema.Phase]string{
	schema.PhaseDisconnected:    "○",
	schema.PhaseConnecting:      "…",
	schema.PhaseAwaitingPairing: "▣",
	schema.PhaseConnected:       "✓",
	schema.PhaseFailed:          "✗",
}

// ServerAddr returns the host:port a CLI client should talk to. A non-empty
// override wins; wildcard listen hosts are reached through loopback.
func ServerAddr(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	host := cfg.Server.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
}

// PrintState writes one line describing a connection state.
func PrintState(w io.Writer, phase schema.Phase, message string, seq uint64, since time.Time) {
	mark := phaseMarks[phase]
	if mark == "" {
		mark = "?"
	}
	line := fmt.Sprintf("%s %-16s #%-4d %s", mark, phase, seq, since.Local().Format(time.TimeOnly))
	if message != "" {
		line += "  " + message
	}
	fmt.Fprintln(w, line)
}

// PrintPairingCode writes the pairing payload so it can be fed to a QR renderer.
func PrintPairingCode(w io.Writer, code string) {
	if code == "" {
		return
	}
	fmt.Fprintf(w, "  pairing code: %s\n", code)
}
