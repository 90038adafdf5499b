package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/wadash/internal/server"
	"github.com/crystaldolphin/wadash/internal/shared/cmdutils"
)

var restartServer string

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Ask a running wadash to reconnect",
	RunE:  runRestart,
}

func init() {
	restartCmd.Flags().StringVarP(&restartServer, "server", "s", "", "Dashboard address host:port (default from config)")
}

func runRestart(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cmdutils.ServerAddr(cfg, restartServer)

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/api/restart", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("restart via %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("restart via %s: %s", addr, resp.Status)
	}

	var body server.RestartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("✓ Restart requested (source %s)\n", body.Source)
	return nil
}
