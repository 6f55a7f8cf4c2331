// Package config loads host-side session configuration from the environment.
// The core engine is configured programmatically via functional options;
// this package exists for hosts (the CLI, containers) that wire a session
// from STORYMESH_* variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// SessionConfig is the environment-driven session setup.
type SessionConfig struct {
	// Rounds to run before the session terminates.
	Rounds int `env:"STORYMESH_ROUNDS" envDefault:"3"`

	// Provider selects the narration backend: "none", "mock", "openai" or
	// "anthropic".
	Provider string `env:"STORYMESH_PROVIDER" envDefault:"none"`

	// Model overrides the provider's default model name.
	Model string `env:"STORYMESH_MODEL"`

	// NarrationTimeout bounds every narration call.
	NarrationTimeout time.Duration `env:"STORYMESH_NARRATION_TIMEOUT" envDefault:"10s"`

	// MaxNarrationCalls caps narration calls per session; zero is unlimited.
	MaxNarrationCalls int `env:"STORYMESH_MAX_NARRATION_CALLS" envDefault:"0"`

	// Seed drives the session dice; a fixed seed replays a session.
	Seed int64 `env:"STORYMESH_SEED" envDefault:"1"`

	// TranscriptPath, when set, persists the transcript to a SQLite file
	// instead of the in-memory store.
	TranscriptPath string `env:"STORYMESH_TRANSCRIPT_PATH"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `env:"STORYMESH_LOG_LEVEL" envDefault:"info"`

	// LogFormat is "json" or "text".
	LogFormat string `env:"STORYMESH_LOG_FORMAT" envDefault:"text"`
}

// Load parses the session configuration from environment variables and
// validates it.
func Load() (SessionConfig, error) {
	var cfg SessionConfig
	if err := env.Parse(&cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// Validate checks field values a host would otherwise discover mid-session.
func (c SessionConfig) Validate() error {
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.NarrationTimeout <= 0 {
		return fmt.Errorf("narration timeout must be positive, got %s", c.NarrationTimeout)
	}
	switch c.Provider {
	case "none", "mock", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown narration provider %q", c.Provider)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
