package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/copycatwire/internal/logging"
	"github.com/danmuck/copycatwire/internal/protocol/frame"
	"github.com/danmuck/copycatwire/internal/protocol/session"
)

// Config is the resolved setup shared by the codec, session helpers and
// the CLI.
type Config struct {
	Limits           frame.Limits
	Session          session.Config
	Log              logging.Config
	MetricsNamespace string
}

func Default() Config {
	return Config{
		Limits:           frame.DefaultLimits(),
		Session:          session.DefaultConfig(),
		Log:              logging.DefaultConfig(logging.ProfileRuntime),
		MetricsNamespace: "copycatwire",
	}
}

// fileConfig is the on-disk key mapping. Durations are Go duration
// strings ("250ms", "5s").
type fileConfig struct {
	MaxPayloadBytes   uint64  `toml:"max_payload_bytes" yaml:"max_payload_bytes"`
	SessionTimeout    string  `toml:"session_timeout" yaml:"session_timeout"`
	KeepAliveInterval string  `toml:"keepalive_interval" yaml:"keepalive_interval"`
	RequestTimeout    string  `toml:"request_timeout" yaml:"request_timeout"`
	MaxPending        int     `toml:"max_pending" yaml:"max_pending"`
	BackoffInitial    string  `toml:"backoff_initial_delay" yaml:"backoff_initial_delay"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" yaml:"backoff_multiplier"`
	BackoffMax        string  `toml:"backoff_max_delay" yaml:"backoff_max_delay"`
	BackoffJitter     bool    `toml:"backoff_jitter" yaml:"backoff_jitter"`
	LogLevel          string  `toml:"log_level" yaml:"log_level"`
	LogTimestamp      bool    `toml:"log_timestamp" yaml:"log_timestamp"`
	LogNoColor        bool    `toml:"log_no_color" yaml:"log_no_color"`
	MetricsNamespace  string  `toml:"metrics_namespace" yaml:"metrics_namespace"`
}

// Load reads a TOML or YAML file, chosen by extension, and overlays the
// keys it sets onto Default. Environment log overrides apply last.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, Format(path))
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Format maps a file name to "toml" or "yaml". Unknown extensions read as
// TOML.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// Parse decodes data in format and applies it over Default.
func Parse(data []byte, format string) (Config, error) {
	var (
		raw     fileConfig
		defined func(key string) bool
	)
	switch format {
	case "toml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
		if err != nil {
			return Config{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		defined = func(key string) bool { return meta.IsDefined(key) }
	case "yaml":
		keys := map[string]any{}
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return Config{}, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && len(keys) > 0 {
			return Config{}, err
		}
		defined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", format)
	}

	cfg := Default()
	if err := overlay(&cfg, raw, defined); err != nil {
		return Config{}, err
	}
	logging.ApplyEnvOverrides(&cfg.Log)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlay(cfg *Config, raw fileConfig, defined func(string) bool) error {
	if defined("max_payload_bytes") {
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"session_timeout", raw.SessionTimeout, &cfg.Session.SessionTimeout},
		{"keepalive_interval", raw.KeepAliveInterval, &cfg.Session.KeepAliveInterval},
		{"request_timeout", raw.RequestTimeout, &cfg.Session.RequestTimeout},
		{"backoff_initial_delay", raw.BackoffInitial, &cfg.Session.Backoff.InitialDelay},
		{"backoff_max_delay", raw.BackoffMax, &cfg.Session.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !defined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if defined("max_pending") {
		cfg.Session.MaxPending = raw.MaxPending
	}
	if defined("backoff_multiplier") {
		cfg.Session.Backoff.Multiplier = raw.BackoffMultiplier
	}
	if defined("backoff_jitter") {
		cfg.Session.Backoff.Jitter = raw.BackoffJitter
	}
	if defined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return fmt.Errorf("log_level: unknown level %q", raw.LogLevel)
		}
		cfg.Log.Level = lvl
	}
	if defined("log_timestamp") {
		cfg.Log.Timestamp = raw.LogTimestamp
	}
	if defined("log_no_color") {
		cfg.Log.NoColor = raw.LogNoColor
	}
	if defined("metrics_namespace") {
		cfg.MetricsNamespace = strings.TrimSpace(raw.MetricsNamespace)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Limits.MaxPayloadBytes == 0 {
		return fmt.Errorf("max_payload_bytes must be positive")
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.MetricsNamespace) == "" {
		return fmt.Errorf("metrics_namespace is required")
	}
	return nil
}
