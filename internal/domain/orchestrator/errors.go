package orchestrator

import "errors"

var (
	// ErrConfiguration is returned when a run is started with invalid inputs.
	ErrConfiguration = errors.New("invalid evaluation configuration")
	// ErrInsufficientData is returned when too many pairs failed to produce a table.
	ErrInsufficientData = errors.New("insufficient evaluation data")
	// ErrRunInProgress is returned when a run is triggered while another is active.
	ErrRunInProgress = errors.New("evaluation run already in progress")
)
