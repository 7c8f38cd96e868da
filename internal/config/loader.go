package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SCENTD_CONFIG is set
//  3. env (prefix SCENTD_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SCENTD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCENTD_ADDR, SCENTD_CACHE_TTL_SECONDS, ...
	// Nested sections use a double underscore: SCENTD_AI__TIMEOUT_MS maps
	// to ai.timeout_ms. A single underscore stays part of the key name.
	envProvider := env.Provider("SCENTD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scentd_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.CacheTTLSeconds <= 0:
		return nil, fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case cfg.CacheCapacity <= 0:
		return nil, fmt.Errorf("%w: cache_capacity must be positive", ErrInvalidConfig)
	case cfg.AI.Provider != "openai" && cfg.AI.Provider != "mock":
		return nil, fmt.Errorf("%w: ai.provider must be openai or mock", ErrInvalidConfig)
	case cfg.AI.MaxRetries < 0:
		return nil, fmt.Errorf("%w: ai.max_retries must not be negative", ErrInvalidConfig)
	case cfg.AI.MaxConcurrent <= 0:
		return nil, fmt.Errorf("%w: ai.max_concurrent must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
