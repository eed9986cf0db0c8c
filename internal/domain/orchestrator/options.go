package orchestrator

import (
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the number of pool workers per stage.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the task queue capacity per stage.
func WithQueueSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithArchiver persists published tables and run results. Failures are logged only.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.archiver = a
		}
	}
}

// WithJudgeRegistry sets the models allowed to judge. By default judges must be
// candidates of the run.
func WithJudgeRegistry(r *model.Registry) Option {
	return func(o *Orchestrator) {
		o.judgeRegistry = r
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(runID string, s State)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
