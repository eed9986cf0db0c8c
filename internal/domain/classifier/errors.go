package classifier

import "errors"

var (
	// ErrInvalidInput is returned for blank prompts. It is the only error Classify returns.
	ErrInvalidInput = errors.New("invalid input")
	// ErrClassificationFallback marks that the LLM step was bypassed. It is logged, never returned.
	ErrClassificationFallback = errors.New("classification fell back")
)
