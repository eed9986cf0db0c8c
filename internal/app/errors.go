package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("service not started")
	// ErrRunNotFound is returned when no run with the given ID is known.
	ErrRunNotFound = errors.New("evaluation run not found")
)
