package routing

import "errors"

var (
	// ErrRoutingExhausted is returned when the primary and the fallback both failed.
	ErrRoutingExhausted = errors.New("routing exhausted")
	// ErrNoCandidates is returned when no registered model can serve a category.
	ErrNoCandidates = errors.New("no candidate models")
	// ErrInvalidInput is returned for blank prompts before any model is called.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownStrategy is returned by ParseStrategy.
	ErrUnknownStrategy = errors.New("unknown routing strategy")
)
