package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/crystaldolphin/wadash/internal/observer"
	"github.com/crystaldolphin/wadash/internal/shared/cmdutils"
)

var (
	watchServer  string
	watchRestart bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream connection state changes from a running wadash",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchServer, "server", "s", "", "Dashboard address host:port (default from config)")
	watchCmd.Flags().BoolVar(&watchRestart, "restart", false, "Request a restart after attaching")
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cmdutils.ServerAddr(cfg, watchServer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+addr+"/ws", nil)
	if err != nil {
		return fmt.Errorf("attach to %s: %w", addr, err)
	}
	defer conn.Close()
	context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})

	fmt.Printf("%s Watching %s. Press Ctrl+C to stop.\n\n", logo, addr)

	if watchRestart {
		if err := conn.WriteJSON(observer.Envelope{Type: observer.MsgRestart}); err != nil {
			return fmt.Errorf("send restart: %w", err)
		}
	}

	for {
		var env observer.RawEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("server closed the stream: %s", ce.Text)
			}
			return fmt.Errorf("read: %w", err)
		}
		printEnvelope(env)
	}
}

func printEnvelope(env observer.RawEnvelope) {
	switch env.Type {
	case observer.MsgStatusChange:
		var p observer.StatusPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			fmt.Fprintf(os.Stderr, "bad status frame: %v\n", err)
			return
		}
		cmdutils.PrintState(os.Stdout, p.Phase, p.Message, p.Seq, p.Since)
	case observer.MsgQRCode:
		var p observer.QRPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			fmt.Fprintf(os.Stderr, "bad qr frame: %v\n", err)
			return
		}
		cmdutils.PrintPairingCode(os.Stdout, p.QR)
	}
}
