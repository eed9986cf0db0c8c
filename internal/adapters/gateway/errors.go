package gateway

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the gateway. Callers branch on them with errors.Is.
var (
	ErrTransport      = errors.New("gateway transport failure")
	ErrProvider       = errors.New("gateway provider rejection")
	ErrRateLimited    = errors.New("gateway rate limited")
	ErrUnknownModel   = errors.New("model not registered")
	ErrInvalidRequest = errors.New("invalid gateway request")
)

// Error carries the kind, the model and the upstream cause of a failed call.
type Error struct {
	Kind   error
	Model  string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: model %s: status %d: %v", e.Kind, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: model %s: %v", e.Kind, e.Model, e.Err)
}

// Unwrap exposes both the kind sentinel and the upstream cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind names the error kind of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrProvider), errors.Is(err, ErrUnknownModel):
		return "provider"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	default:
		return "unknown"
	}
}

// classifyStatus maps an upstream HTTP status to an error kind.
func classifyStatus(status int) error {
	switch status {
	case 429, 529:
		return ErrRateLimited
	case 502, 503, 504:
		return ErrTransport
	default:
		return ErrProvider
	}
}
