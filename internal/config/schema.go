// Package config defines the configuration schema for wadash.
//
// JSON keys use camelCase; the same keys are accepted in YAML files.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/crystaldolphin/wadash/internal/config/channel"
	"github.com/crystaldolphin/wadash/internal/config/server"
	"github.com/crystaldolphin/wadash/internal/schedule"
	"github.com/crystaldolphin/wadash/internal/schema"
)

const (
	DriverBridge = "bridge"
	DriverMock   = "mock"
)

// MockDriverConfig tunes the development driver used with --mock.
type MockDriverConfig struct {
	PairingInterval Duration `json:"pairingInterval" yaml:"pairingInterval"`
	PairAfter       int      `json:"pairAfter" yaml:"pairAfter"` // pairing rounds before authenticating
}

// DriverConfig selects the driver that holds the platform connection.
type DriverConfig struct {
	Kind string           `json:"kind" yaml:"kind"` // "bridge" | "mock"
	Mock MockDriverConfig `json:"mock" yaml:"mock"`
}

func defaultDriverConfig() DriverConfig {
	return DriverConfig{
		Kind: DriverBridge,
		Mock: MockDriverConfig{
			PairingInterval: Duration(20 * time.Second),
			PairAfter:       2,
		},
	}
}

// SessionConfig holds connection lifecycle settings.
type SessionConfig struct {
	ObserverBacklog  int      `json:"observerBacklog" yaml:"observerBacklog"`
	ConnectTimeout   Duration `json:"connectTimeout" yaml:"connectTimeout"` // 0 disables the stall check
	AutoReconnect    bool     `json:"autoReconnect" yaml:"autoReconnect"`
	ReconnectDelay   Duration `json:"reconnectDelay" yaml:"reconnectDelay"`
	WatchdogInterval Duration `json:"watchdogInterval" yaml:"watchdogInterval"`
	RestartSchedule  string   `json:"restartSchedule" yaml:"restartSchedule"` // cron expression with seconds; empty disables
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		ObserverBacklog:  256,
		ConnectTimeout:   Duration(2 * time.Minute),
		AutoReconnect:    true,
		ReconnectDelay:   Duration(5 * time.Second),
		WatchdogInterval: Duration(time.Second),
	}
}

// NotifyConfig selects which phases are forwarded to the notification channels.
type NotifyConfig struct {
	Phases []string `json:"phases" yaml:"phases"`
}

func defaultNotifyConfig() NotifyConfig {
	return NotifyConfig{Phases: []string{
		string(schema.PhaseAwaitingPairing),
		string(schema.PhaseConnected),
		string(schema.PhaseFailed),
	}}
}

// Config is the root configuration object.
type Config struct {
	Server   server.ServerConfig    `json:"server" yaml:"server"`
	Driver   DriverConfig           `json:"driver" yaml:"driver"`
	Session  SessionConfig          `json:"session" yaml:"session"`
	Channels channel.ChannelsConfig `json:"channels" yaml:"channels"`
	Notify   NotifyConfig           `json:"notify" yaml:"notify"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		Server:   server.DefaultServerConfig(),
		Driver:   defaultDriverConfig(),
		Session:  defaultSessionConfig(),
		Channels: channel.DefaultChannelsConfig(),
		Notify:   defaultNotifyConfig(),
	}
}

// Addr returns the host:port the dashboard server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// NotifyPhases parses Notify.Phases.
func (c *Config) NotifyPhases() ([]schema.Phase, error) {
	phases := make([]schema.Phase, 0, len(c.Notify.Phases))
	for _, s := range c.Notify.Phases {
		p, err := schema.ParsePhase(s)
		if err != nil {
			return nil, fmt.Errorf("notify.phases: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// Validate reports every setting the serve command cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Driver.Kind {
	case DriverBridge:
		if c.Channels.WhatsApp.BridgeURL == "" {
			errs = append(errs, errors.New("channels.whatsapp.bridgeUrl is required for the bridge driver"))
		}
	case DriverMock:
	default:
		errs = append(errs, fmt.Errorf("driver.kind %q is not one of %q, %q", c.Driver.Kind, DriverBridge, DriverMock))
	}
	if c.Session.ReconnectDelay < 0 || c.Session.ConnectTimeout < 0 {
		errs = append(errs, errors.New("session durations must not be negative"))
	}
	if err := schedule.Validate(c.Session.RestartSchedule); err != nil {
		errs = append(errs, fmt.Errorf("session.restartSchedule: %w", err))
	}
	if _, err := c.NotifyPhases(); err != nil {
		errs = append(errs, err)
	}
	if c.Channels.Slack.Enabled && (c.Channels.Slack.BotToken == "" || c.Channels.Slack.Channel == "") {
		errs = append(errs, errors.New("channels.slack needs botToken and channel when enabled"))
	}
	if c.Channels.Telegram.Enabled && (c.Channels.Telegram.Token == "" || c.Channels.Telegram.ChatID == 0) {
		errs = append(errs, errors.New("channels.telegram needs token and chatId when enabled"))
	}
	return errors.Join(errs...)
}
