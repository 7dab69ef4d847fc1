// Package config loads migrate-guard's process configuration, following
// cmd/chrc/main.go's env(key,def) idiom for environment variables and
// domwatch/internal/config.LoadFile's YAML-with-defaults pattern for an
// optional config file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration for cmd/migrate-guard.
type Config struct {
	Port              string        `yaml:"port"`
	LogLevel          string        `yaml:"log_level"`
	DataDir           string        `yaml:"data_dir"`
	EventLogPath      string        `yaml:"event_log_path"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	GlobalConcurrency int           `yaml:"global_concurrency"`
	PerJobConcurrency int           `yaml:"per_job_concurrency"`
	StageTimeout      time.Duration `yaml:"stage_timeout"`
	BrowserHeadless   bool          `yaml:"browser_headless"`
	Reasoner          ReasonerConfig `yaml:"reasoner"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// ReasonerConfig selects and configures the Reasoning stage (spec.md §4.9).
type ReasonerConfig struct {
	// Mode is "llm" or "rule-based". "llm" is automatically wrapped with a
	// rule-based fallback (reasoning.WithFallback).
	Mode        string `yaml:"mode"`
	AnthropicKey string `yaml:"-"` // never serialized; sourced from env only
	Model       string `yaml:"model"`
}

// env returns the environment variable's value, or def if unset/empty
// (cmd/chrc/main.go's env() helper).
func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load builds Config from environment variables, applying defaults for
// anything unset. If MIGRATE_GUARD_CONFIG_FILE points at a YAML file, its
// values are overlaid on top of the env-derived defaults before returning.
func Load() (Config, error) {
	cfg := Config{
		Port:              env("PORT", "8090"),
		LogLevel:          env("LOG_LEVEL", "info"),
		DataDir:           env("DATA_DIR", "data"),
		EventLogPath:      env("EVENT_LOG_PATH", "data/events.db"),
		AllowedOrigins:    splitCSV(env("ALLOWED_ORIGINS", "")),
		GlobalConcurrency: envInt("GLOBAL_CONCURRENCY", 2),
		PerJobConcurrency: envInt("PER_JOB_CONCURRENCY", 1),
		StageTimeout:      envDuration("STAGE_TIMEOUT", 10*time.Minute),
		BrowserHeadless:   envBool("BROWSER_HEADLESS", true),
		ShutdownTimeout:   envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Reasoner: ReasonerConfig{
			Mode:         env("REASONER_MODE", "rule-based"),
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:        env("REASONER_MODEL", "claude-sonnet-4-5-20250929"),
		},
	}

	if path := os.Getenv("MIGRATE_GUARD_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyDefaults() {
	if c.GlobalConcurrency <= 0 {
		c.GlobalConcurrency = 2
	}
	if c.PerJobConcurrency <= 0 {
		c.PerJobConcurrency = 1
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 10 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.Reasoner.Mode == "" {
		c.Reasoner.Mode = "rule-based"
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LogLevelValue parses LogLevel into an slog.Level, defaulting to Info on
// an unrecognized value.
func (c Config) LogLevelValue() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
