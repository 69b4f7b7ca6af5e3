package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs.
const (
	EnvPrefix     = "LIVEMAP_"
	EnvConfigFile = "LIVEMAP_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if LIVEMAP_CONFIG is set
//  3. env (prefix LIVEMAP_)
func Load(ctx context.Context) (*Config, error) {
	cfg := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LIVEMAP_QUEUE_SIZE -> queue_size (flat keys, underscores kept)
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch {
	case c.Source == SourceREST && c.BackendURL == "":
		return fmt.Errorf("%w: backend_url is required for the rest source", ErrInvalidConfig)
	case c.Source == SourceStatic && c.StaticPath == "":
		return fmt.Errorf("%w: static_path is required for the static source", ErrInvalidConfig)
	case c.Surface == SurfaceTerminal && c.MapToken == "":
		return fmt.Errorf("%w: map_token is required for the terminal surface", ErrInvalidConfig)
	}
	return nil
}
