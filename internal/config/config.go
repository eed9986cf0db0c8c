// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and ROUTER_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/routing"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	Gateway    GatewayConfig    `koanf:"gateway"`
	Models     []model.Model    `koanf:"models"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Routing    RoutingConfig    `koanf:"routing"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Safety     SafetyConfig     `koanf:"safety"`
	Archive    ArchiveConfig    `koanf:"archive"`
	History    HistoryConfig    `koanf:"history"`
	Dedupe     DedupeConfig     `koanf:"dedupe"`
}

// GatewayConfig configures upstream model access.
type GatewayConfig struct {
	// BaseURL is the OpenAI-compatible endpoint, Portkey by default.
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`

	// AnthropicAPIKey enables direct calls for models with provider "anthropic".
	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`

	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	MaxRetries        int           `koanf:"max_retries"`
	MaxTokens         int           `koanf:"max_tokens"`
}

// ClassifierConfig configures prompt classification.
type ClassifierConfig struct {
	// Model is the registry ID used for LLM labelling. Empty disables the LLM step.
	Model           string `koanf:"model"`
	DefaultCategory string `koanf:"default_category"`
}

// RoutingConfig configures model selection.
type RoutingConfig struct {
	DefaultCategory string `koanf:"default_category"`
	Strategy        string `koanf:"strategy"`
}

// EvaluationConfig configures evaluation sweeps.
type EvaluationConfig struct {
	Judges []string `koanf:"judges"`

	// Candidates restricts the evaluated models. Empty evaluates every model.
	Candidates            []string      `koanf:"candidates"`
	DisagreementThreshold float64       `koanf:"disagreement_threshold"`
	MaxFailureFraction    float64       `koanf:"max_failure_fraction"`
	CallTimeout           time.Duration `koanf:"call_timeout"`
	ExcludeSelfReview     bool          `koanf:"exclude_self_review"`
	Workers               int           `koanf:"workers"`
	QueueSize             int           `koanf:"queue_size"`

	// QuestionSet is a YAML file path. Empty uses the built-in set.
	QuestionSet string `koanf:"question_set"`

	// Schedule triggers a sweep periodically. Zero disables scheduling.
	Schedule time.Duration `koanf:"schedule"`
}

// SafetyConfig configures the response safety check.
type SafetyConfig struct {
	BlockPII     bool     `koanf:"block_pii"`
	DenyPatterns []string `koanf:"deny_patterns"`
}

// ArchiveConfig configures run persistence.
type ArchiveConfig struct {
	// Path is the SQLite file. Empty disables the archive.
	Path string `koanf:"path"`
}

// HistoryConfig bounds the in-memory run history.
type HistoryConfig struct {
	Size int `koanf:"size"`
}

// DedupeConfig bounds the idempotency-key cache.
type DedupeConfig struct {
	Size int `koanf:"size"`
}

// DefaultModels is the registry served through Portkey out of the box.
func DefaultModels() []model.Model {
	return []model.Model{
		{ID: "gpt-4o", Provider: model.ProviderPortkey, UpstreamID: "@openai/gpt-4o", DisplayName: "GPT-4o", InputCostPer1K: 0.0025, OutputCostPer1K: 0.01},
		{ID: "gpt-4o-mini", Provider: model.ProviderPortkey, UpstreamID: "@openai/gpt-4o-mini", DisplayName: "GPT-4o Mini", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
		{ID: "claude-sonnet-4", Provider: model.ProviderPortkey, UpstreamID: "@anthropic/claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
		{ID: "claude-haiku", Provider: model.ProviderPortkey, UpstreamID: "@anthropic/claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},
		{ID: "claude-sonnet-4-5", Provider: model.ProviderPortkey, UpstreamID: "@anthropic/claude-sonnet-4-5-20250929", DisplayName: "Claude Sonnet 4.5", InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Addr:      ":9080",
		Gateway: GatewayConfig{
			Timeout:           60 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        2,
			MaxTokens:         1024,
		},
		Models: DefaultModels(),
		Classifier: ClassifierConfig{
			Model:           "gpt-4o-mini",
			DefaultCategory: string(types.Knowledge),
		},
		Routing: RoutingConfig{
			DefaultCategory: string(types.Knowledge),
			Strategy:        string(routing.BestQuality),
		},
		Evaluation: EvaluationConfig{
			Judges:                []string{"claude-sonnet-4", "gpt-4o"},
			DisagreementThreshold: 1.5,
			MaxFailureFraction:    0.25,
			CallTimeout:           60 * time.Second,
			Workers:               4,
			QueueSize:             256,
		},
		Archive: ArchiveConfig{Path: "data/router.db"},
		History: HistoryConfig{Size: 50},
		Dedupe:  DedupeConfig{Size: 1024},
	}
}

// Registry builds the model registry.
func (c *Config) Registry() (*model.Registry, error) {
	reg, err := model.NewRegistry(c.Models...)
	if err != nil {
		return nil, fmt.Errorf("%w: models: %w", ErrInvalidConfig, err)
	}
	return reg, nil
}

// Candidates builds the registry of evaluated models.
func (c *Config) Candidates() (*model.Registry, error) {
	if len(c.Evaluation.Candidates) == 0 {
		return c.Registry()
	}
	all, err := c.Registry()
	if err != nil {
		return nil, err
	}
	models := make([]model.Model, 0, len(c.Evaluation.Candidates))
	for _, id := range c.Evaluation.Candidates {
		m, ok := all.Lookup(strings.TrimSpace(id))
		if !ok {
			return nil, fmt.Errorf("%w: evaluation candidate %s is not a configured model", ErrInvalidConfig, id)
		}
		models = append(models, m)
	}
	reg, err := model.NewRegistry(models...)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluation candidates: %w", ErrInvalidConfig, err)
	}
	return reg, nil
}

// RunConfig returns the per-run evaluation parameters.
func (c *Config) RunConfig() orchestrator.RunConfig {
	return orchestrator.RunConfig{
		Judges:                append([]string(nil), c.Evaluation.Judges...),
		DisagreementThreshold: c.Evaluation.DisagreementThreshold,
		MaxFailureFraction:    c.Evaluation.MaxFailureFraction,
		CallTimeout:           c.Evaluation.CallTimeout,
		ExcludeSelfReview:     c.Evaluation.ExcludeSelfReview,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return invalid("log_format must be json or text, got %q", c.LogFormat)
	}
	reg, err := c.Registry()
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		return invalid("at least one model is required")
	}
	for _, m := range reg.Models() {
		switch m.Provider {
		case model.ProviderPortkey, model.ProviderAnthropic:
		default:
			return invalid("model %s has unknown provider %q", m.ID, m.Provider)
		}
	}
	if _, err := c.Candidates(); err != nil {
		return err
	}
	if _, err := types.ParseCategory(c.Classifier.DefaultCategory); err != nil {
		return invalid("classifier.default_category: %v", err)
	}
	if _, err := types.ParseCategory(c.Routing.DefaultCategory); err != nil {
		return invalid("routing.default_category: %v", err)
	}
	if _, err := routing.ParseStrategy(c.Routing.Strategy); err != nil {
		return invalid("routing.strategy: %v", err)
	}
	if c.Classifier.Model != "" && !reg.Has(c.Classifier.Model) {
		return invalid("classifier.model %s is not a configured model", c.Classifier.Model)
	}
	for _, j := range c.Evaluation.Judges {
		if !reg.Has(j) {
			return invalid("evaluation judge %s is not a configured model", j)
		}
	}
	if err := c.RunConfig().Validate(); err != nil {
		return invalid("evaluation: %v", err)
	}
	switch {
	case c.Gateway.Timeout < 0:
		return invalid("gateway.timeout cannot be negative")
	case c.Gateway.MaxRetries < 0:
		return invalid("gateway.max_retries cannot be negative")
	case c.Gateway.MaxTokens <= 0:
		return invalid("gateway.max_tokens must be positive")
	case c.Evaluation.Workers <= 0:
		return invalid("evaluation.workers must be positive")
	case c.Evaluation.QueueSize <= 0:
		return invalid("evaluation.queue_size must be positive")
	case c.Evaluation.Schedule < 0:
		return invalid("evaluation.schedule cannot be negative")
	}
	return nil
}
