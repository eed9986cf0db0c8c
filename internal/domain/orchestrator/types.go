package orchestrator

import (
	"fmt"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
)

// State is a pipeline stage.
type State string

// Pipeline states. A run moves Idle -> Loading -> Evaluating -> Judging ->
// Ranking -> Published -> Idle, or to Failed from any active state.
const (
	Idle       State = "idle"
	Loading    State = "loading"
	Evaluating State = "evaluating"
	Judging    State = "judging"
	Ranking    State = "ranking"
	Published  State = "published"
	Failed     State = "failed"
)

// Status is the terminal outcome of a run.
type Status string

// Run outcomes.
const (
	StatusRunning   Status = "running"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// RunConfig carries the per-run evaluation parameters.
type RunConfig struct {
	// RunID is generated when empty.
	RunID                 string        `json:"run_id,omitempty"`
	Judges                []string      `json:"judges"`
	DisagreementThreshold float64       `json:"disagreement_threshold"`
	MaxFailureFraction    float64       `json:"max_failure_fraction"`
	CallTimeout           time.Duration `json:"call_timeout"`
	ExcludeSelfReview     bool          `json:"exclude_self_review"`
}

// Validate checks the numeric bounds of the configuration.
func (c RunConfig) Validate() error {
	switch {
	case len(c.Judges) == 0:
		return fmt.Errorf("%w: at least one judge is required", ErrConfiguration)
	case c.DisagreementThreshold < 0:
		return fmt.Errorf("%w: disagreement threshold cannot be negative", ErrConfiguration)
	case c.MaxFailureFraction < 0 || c.MaxFailureFraction > 1:
		return fmt.Errorf("%w: max failure fraction must be within [0, 1]", ErrConfiguration)
	case c.CallTimeout < 0:
		return fmt.Errorf("%w: call timeout cannot be negative", ErrConfiguration)
	}
	return nil
}

// PairFailure records one (model, question) pair excluded from the run.
type PairFailure struct {
	QuestionID string `json:"question_id"`
	ModelID    string `json:"model_id"`
	Stage      State  `json:"stage"`
	Reason     string `json:"reason"`
}

// FailureSummary explains what went wrong in a run. Pairs is populated for
// published runs too when some pairs failed within tolerance.
type FailureSummary struct {
	Stage       State         `json:"stage,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	TotalPairs  int           `json:"total_pairs"`
	FailedPairs int           `json:"failed_pairs"`
	Fraction    float64       `json:"fraction"`
	Pairs       []PairFailure `json:"pairs,omitempty"`
}

// RunResult is the outcome of one evaluation sweep.
type RunResult struct {
	RunID          string                  `json:"run_id"`
	Status         Status                  `json:"status"`
	Table          *model.PerformanceTable `json:"table,omitempty"`
	FailureSummary FailureSummary          `json:"failure_summary"`
	StartedAt      time.Time               `json:"started_at"`
	FinishedAt     time.Time               `json:"finished_at,omitzero"`
}
