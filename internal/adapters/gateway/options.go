package gateway

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithProvider registers the upstream serving models of kind.
func WithProvider(kind model.Provider, p Provider) Option {
	return func(c *Client) {
		if p != nil {
			c.providers[kind] = p
		}
	}
}

// WithRateLimit bounds outgoing calls to rps with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the rate-limit backoff policy.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		if cfg.Validate() == nil {
			c.retry = cfg
		}
	}
}

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
