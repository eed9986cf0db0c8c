package routing

import (
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDefaultCategory sets the category whose ranking is used when a category has none.
func WithDefaultCategory(c types.Category) Option {
	return func(e *Engine) {
		if c.Valid() {
			e.defaultCategory = c
		}
	}
}

// WithStrategy sets how ranked candidates are ordered.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		if s != "" {
			e.strategy = s
		}
	}
}

// WithColdStart sets the models routed to, sorted by ID, before any ranking
// exists. By default every registered model is eligible.
func WithColdStart(r *model.Registry) Option {
	return func(e *Engine) {
		if r != nil && r.Len() > 0 {
			e.coldStart = r
		}
	}
}

// WithChecker sets the safety check applied to model responses.
func WithChecker(c Checker) Option {
	return func(e *Engine) {
		if c != nil {
			e.checker = c
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
