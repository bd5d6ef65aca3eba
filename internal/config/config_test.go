package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/copycatwire/internal/logging"
	"github.com/danmuck/copycatwire/internal/protocol/session"
	"github.com/danmuck/copycatwire/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTOMLDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	t.Setenv(logging.EnvLogLevel, "")
	path := writeFile(t, "wire.toml", `
max_payload_bytes = 4096
session_timeout = "10s"
keepalive_interval = "3s"
backoff_jitter = false
log_level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Limits.MaxPayloadBytes != 4096 {
		t.Fatalf("unexpected max payload: %d", cfg.Limits.MaxPayloadBytes)
	}
	if cfg.Session.SessionTimeout != 10*time.Second || cfg.Session.KeepAliveInterval != 3*time.Second {
		t.Fatalf("unexpected session timing: %+v", cfg.Session)
	}
	if cfg.Session.Backoff.Jitter {
		t.Fatalf("expected jitter disabled")
	}
	def := session.DefaultConfig()
	if cfg.Session.RequestTimeout != def.RequestTimeout || cfg.Session.Backoff.InitialDelay != def.Backoff.InitialDelay {
		t.Fatalf("unset keys must keep defaults: %+v", cfg.Session)
	}
	if cfg.Log.Level != zerolog.DebugLevel {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
	if cfg.MetricsNamespace != "copycatwire" {
		t.Fatalf("unexpected namespace: %q", cfg.MetricsNamespace)
	}
}

func TestLoadYAMLDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "wire.yaml", `
max_pending: 8
request_timeout: 750ms
backoff_multiplier: 1.5
metrics_namespace: cluster_a
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.MaxPending != 8 || cfg.Session.RequestTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected session: %+v", cfg.Session)
	}
	if cfg.Session.Backoff.Multiplier != 1.5 {
		t.Fatalf("unexpected multiplier: %v", cfg.Session.Backoff.Multiplier)
	}
	if cfg.MetricsNamespace != "cluster_a" {
		t.Fatalf("unexpected namespace: %q", cfg.MetricsNamespace)
	}
	if cfg.Session.SessionTimeout != session.DefaultConfig().SessionTimeout {
		t.Fatalf("unset keys must keep defaults")
	}
}

func TestLoadExplicitZeroOverridesDefault(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "wire.toml", `max_pending = 0`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.MaxPending != 0 {
		t.Fatalf("explicit zero ignored: %d", cfg.Session.MaxPending)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad.toml":       `session_timeout = "soon"`,
		"unknown.toml":   `max_payload = 1`,
		"level.toml":     `log_level = "loud"`,
		"keepalive.toml": `keepalive_interval = "10s"`,
		"zero.yaml":      `max_payload_bytes: 0`,
		"unknown.yml":    `frame_limit: 10`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, name, content)); err == nil {
				t.Fatalf("expected %s to fail", name)
			}
		})
	}
}

func TestLoadKeepAliveMustFitLease(t *testing.T) {
	testlog.Start(t)
	_, err := Load(writeFile(t, "wire.toml", `keepalive_interval = "10s"`))
	if !errors.Is(err, session.ErrInvalidKeepAlive) {
		t.Fatalf("expected keepalive error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestTemplatesMatchDefaults(t *testing.T) {
	testlog.Start(t)
	for _, name := range []string{"wire.toml", "wire.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := WriteTemplate(path, false); err != nil {
			t.Fatalf("write template: %v", err)
		}
		if err := WriteTemplate(path, false); err == nil {
			t.Fatalf("expected existing file to be kept")
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		def := Default()
		if cfg.Limits != def.Limits || cfg.Session != def.Session || cfg.MetricsNamespace != def.MetricsNamespace {
			t.Fatalf("%s template drifted from defaults: %+v", name, cfg)
		}
	}
	if _, err := Template("ini"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
