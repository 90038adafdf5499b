package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/wadash/internal/config"
	"github.com/crystaldolphin/wadash/internal/dependency"
	"github.com/crystaldolphin/wadash/internal/shared/stringutils"
)

var (
	servePort int
	serveMock bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hold the WhatsApp connection and serve the dashboard",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Dashboard port (overrides config)")
	serveCmd.Flags().BoolVar(&serveMock, "mock", false, "Use the mock driver instead of the bridge")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveMock {
		cfg.Driver.Kind = config.DriverMock
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}

	c, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting wadash on %s (driver: %s)...\n", logo, c.Server().Addr(), c.Driver().Name())

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	sess := c.Session()
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return c.Driver().Run(gctx, sess) })
	g.Go(func() error { return c.Server().Start(gctx) })
	g.Go(func() error { return c.Watchdog().Start(gctx) })
	g.Go(func() error { return c.Scheduler().Start(gctx) })
	g.Go(func() error { return c.Notifier().Start(gctx) })

	sess.Start()

	if cfg.Driver.Kind == config.DriverBridge {
		fmt.Printf("✓ Bridge %s (token %s)\n", cfg.Channels.WhatsApp.BridgeURL, stringutils.Mask(cfg.Channels.WhatsApp.BridgeToken))
	}
	if c.Scheduler().Enabled() {
		fmt.Printf("✓ Scheduled restart: %s\n", cfg.Session.RestartSchedule)
	}
	if c.Notifier().Enabled() {
		fmt.Println("✓ Notifications enabled")
	}
	fmt.Printf("%s Dashboard running at http://%s. Press Ctrl+C to stop.\n", logo, c.Server().Addr())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
