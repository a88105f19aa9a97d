package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.yaml in the working directory
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile loads configuration from the given YAML file, environment
// variables, and defaults. The file is optional; when it is missing or
// unreadable the remaining sources still apply.
func LoadFile(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// YAML file is optional, log but don't fail
			fmt.Printf("Warning: could not load %s: %v\n", path, err)
		}
		return nil
	})
}

// LoadBytes loads configuration from raw YAML bytes, environment variables,
// and defaults.
func LoadBytes(b []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to parse config bytes: %w", err)
		}
		return nil
	})
}

func load(source func(*koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	// Load default configuration first
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := source(k); err != nil {
		return nil, err
	}

	// Load environment variables (highest priority)
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		// Convert UPPER_CASE to lower.case for koanf
		return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Store the Koanf instance for flexible access
	cfg.k = k

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":   "30s",
		"client.auth.type": AuthTypeNone,

		"client.retry.maxretries":   3,
		"client.retry.initialdelay": "2s",
		"client.retry.multiplier":   2.0,
		"client.retry.maxdelay":     "0s",
		"client.retry.jitter":       0.0,

		"client.rate.limit": 0.0,
		"client.rate.burst": 0,

		"client.trace.header": "X-Request-ID",
		"client.trace.w3c":    true,

		"client.payload.log":      false,
		"client.payload.maxbytes": 1024,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
