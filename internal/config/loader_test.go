package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Server.Port != def.Server.Port {
		t.Errorf("expected default port %d, got %d", def.Server.Port, cfg.Server.Port)
	}
	if cfg.Driver.Kind != DriverBridge {
		t.Errorf("expected default driver %q, got %q", DriverBridge, cfg.Driver.Kind)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"server": map[string]any{"port": 9000},
		"session": map[string]any{
			"connectTimeout": "45s",
			"reconnectDelay": 1500,
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if got := cfg.Session.ConnectTimeout.Std(); got != 45*time.Second {
		t.Errorf("expected connectTimeout 45s, got %v", got)
	}
	if got := cfg.Session.ReconnectDelay.Std(); got != 1500*time.Millisecond {
		t.Errorf("expected reconnectDelay 1.5s, got %v", got)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"driver:",
		"  kind: mock",
		"  mock:",
		"    pairingInterval: 3s",
		"session:",
		"  autoReconnect: false",
		"  restartSchedule: \"0 0 4 * * *\"",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Driver.Kind != DriverMock {
		t.Errorf("expected mock driver, got %q", cfg.Driver.Kind)
	}
	if got := cfg.Driver.Mock.PairingInterval.Std(); got != 3*time.Second {
		t.Errorf("expected pairingInterval 3s, got %v", got)
	}
	if cfg.Session.AutoReconnect {
		t.Error("expected autoReconnect false")
	}
	// Unset fields keep their defaults.
	if cfg.Session.ObserverBacklog != DefaultConfig().Session.ObserverBacklog {
		t.Errorf("expected default backlog, got %d", cfg.Session.ObserverBacklog)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for invalid JSON (falls back to default), got: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"session": map[string]any{"connectTimeout": "soon"},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.ConnectTimeout != DefaultConfig().Session.ConnectTimeout {
		t.Errorf("expected default connectTimeout, got %v", cfg.Session.ConnectTimeout)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			original := DefaultConfig()
			original.Server.Port = 1234
			original.Session.ReconnectDelay = Duration(7 * time.Second)
			original.Channels.Telegram.ChatID = -100123

			if err := Save(&original, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.Server.Port != 1234 {
				t.Errorf("port mismatch: got %d", loaded.Server.Port)
			}
			if loaded.Session.ReconnectDelay != original.Session.ReconnectDelay {
				t.Errorf("reconnectDelay mismatch: got %v", loaded.Session.ReconnectDelay)
			}
			if loaded.Channels.Telegram.ChatID != -100123 {
				t.Errorf("chatId mismatch: got %d", loaded.Channels.Telegram.ChatID)
			}
		})
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "config.json")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestLoadEnvFile_AndApplyEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnvFile(dir); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}

	t.Setenv(EnvBridgeToken, "")
	t.Setenv(EnvSlackToken, "from-env")
	env := EnvBridgeToken + "=bridge-secret\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, so clear it.
	os.Unsetenv(EnvBridgeToken)
	if err := LoadEnvFile(dir); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}

	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	if cfg.Channels.WhatsApp.BridgeToken != "bridge-secret" {
		t.Errorf("expected bridge token from .env, got %q", cfg.Channels.WhatsApp.BridgeToken)
	}
	if cfg.Channels.Slack.BotToken != "from-env" {
		t.Errorf("expected slack token from env, got %q", cfg.Channels.Slack.BotToken)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg.Server.Port = 0
	cfg.Driver.Kind = "carrier-pigeon"
	cfg.Session.RestartSchedule = "every tuesday"
	cfg.Notify.Phases = []string{"connected", "sleeping"}
	cfg.Channels.Slack.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"server.port", "driver.kind", "restartSchedule", "sleeping", "channels.slack"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}
}
