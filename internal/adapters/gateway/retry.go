package gateway

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// RetryConfig configures backoff after upstream rate limiting.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts; 0 disables retrying.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c RetryConfig) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0:
		return errors.New("base backoff cannot be negative")
	case c.MaxBackoff < 0:
		return errors.New("max backoff cannot be negative")
	case c.MaxJitter < 0:
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultRetryConfig returns the policy used for upstream 429s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// RetryWithBackoff runs fn, retrying with exponential backoff and jitter while
// isRetryable accepts the error. Cancellation of ctx stops waiting immediately.
func RetryWithBackoff[T any](ctx context.Context, log logger.Logger, cfg RetryConfig, model string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)
		var jitter time.Duration
		if cfg.MaxJitter > 0 {
			if n, err := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter))); err == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		metrics.RecordGatewayRetry(model)
		log.Warn(ctx, "rate limited, retrying",
			logger.String("model", model),
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", cfg.MaxRetries),
			logger.Duration("backoff", backoff+jitter),
			logger.Error(lastErr),
		)

		timer := time.NewTimer(backoff + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, &Error{Kind: ErrTransport, Model: model, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", model, cfg.MaxRetries, lastErr)
}
