package scoring

import (
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Panel.
type Option func(*Panel)

// WithConcurrency bounds how many judges are called at once.
func WithConcurrency(n int) Option {
	return func(p *Panel) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithCallTimeout bounds each judge call. Zero leaves the caller's deadline in charge.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Panel) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithSelfReviewExcluded stops judges from scoring answers produced by their own model.
func WithSelfReviewExcluded(exclude bool) Option {
	return func(p *Panel) {
		p.excludeSelf = exclude
	}
}

// WithLogger sets a custom logger for the panel.
func WithLogger(l logger.Logger) Option {
	return func(p *Panel) {
		if l != nil {
			p.logger = l
		}
	}
}
