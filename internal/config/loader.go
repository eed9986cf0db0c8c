package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs.
const (
	EnvPrefix     = "ROUTER_"
	EnvConfigPath = "ROUTER_CONFIG"
)

// listKeys are replaced wholesale rather than merged element-wise with defaults.
var listKeys = []string{"models", "evaluation.judges", "evaluation.candidates", "safety.deny_patterns"}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ROUTER_CONFIG is set
//  3. env (prefix ROUTER_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ROUTER_GATEWAY__API_KEY -> gateway.api_key
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	for _, key := range listKeys {
		if k.Exists(key) {
			clearList(cfg, key)
		}
	}
	decoder := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Result:           cfg,
		WeaklyTypedInput: true,
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: decoder}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func clearList(cfg *Config, key string) {
	switch key {
	case "models":
		cfg.Models = nil
	case "evaluation.judges":
		cfg.Evaluation.Judges = nil
	case "evaluation.candidates":
		cfg.Evaluation.Candidates = nil
	case "safety.deny_patterns":
		cfg.Safety.DenyPatterns = nil
	}
}
