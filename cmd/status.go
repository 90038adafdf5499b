package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/wadash/internal/server"
	"github.com/crystaldolphin/wadash/internal/shared/cmdutils"
)

const clientTimeout = 10 * time.Second

var (
	statusServer string
	statusJSON   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection state of a running wadash",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusServer, "server", "s", "", "Dashboard address host:port (default from config)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw JSON response")
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cmdutils.ServerAddr(cfg, statusServer)

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query %s: %s", addr, resp.Status)
	}

	var st server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("%s wadash at %s\n\n", logo, addr)
	cmdutils.PrintState(os.Stdout, st.Phase, st.Message, st.Seq, st.Since)
	cmdutils.PrintPairingCode(os.Stdout, st.QR)
	fmt.Printf("\nObservers: %d\n", st.Observers)
	return nil
}
