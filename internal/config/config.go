package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// Config holds the runtime settings read from LUDO_* environment variables.
type Config struct {
	// DBPath defaults to ~/.ludo/ludo.db.
	DBPath       string `env:"LUDO_DB"`
	LogLevel     string `env:"LUDO_LOG_LEVEL" envDefault:"warn"`
	LogCalls     bool   `env:"LUDO_LOG_CALLS"`
	MaxTreeDepth int    `env:"LUDO_MAX_TREE_DEPTH" envDefault:"16"`
	Locale       string `env:"LUDO_LOCALE" envDefault:"fr"`
	Metrics      bool   `env:"LUDO_METRICS"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".ludo", "ludo.db")
	}
	if cfg.MaxTreeDepth <= 0 {
		return Config{}, fmt.Errorf("LUDO_MAX_TREE_DEPTH must be positive, got %d", cfg.MaxTreeDepth)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Language(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SlogLevel maps LogLevel (debug, info, warn, error) to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("LUDO_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Language parses Locale as a BCP 47 tag.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("LUDO_LOCALE: %w", err)
	}
	return tag, nil
}
