// Package debate turns an answer's judge scores into one aggregated score,
// running a single extra round when the judges disagree too much.
package debate

import (
	"context"
	"fmt"
	"slices"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/scoring"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// DefaultThreshold is the score spread above which a debate round runs.
const DefaultThreshold = 1.5

// Rejudger runs the debate round.
type Rejudger interface {
	Rejudge(ctx context.Context, q model.Question, a model.Answer, peers []model.JudgeScore) ([]model.JudgeScore, error)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithThreshold sets the disagreement threshold. Spreads strictly greater trigger debate.
func WithThreshold(t float64) Option {
	return func(a *Aggregator) {
		if t >= 0 {
			a.threshold = t
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Aggregator implements the single_pass -> debated protocol.
type Aggregator struct {
	judges    Rejudger
	threshold float64
	logger    logger.Logger
}

// New creates an aggregator that debates through judges.
func New(judges Rejudger, opts ...Option) *Aggregator {
	a := &Aggregator{judges: judges, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("debate")
	}
	return a
}

// Threshold returns the configured disagreement threshold.
func (a *Aggregator) Threshold() float64 { return a.threshold }

// Aggregate computes the final score of ans from its round-one scores. When the
// spread exceeds the threshold exactly one debate round is run; its scores
// replace round one unless it produced none, in which case round one stands and
// the answer is still marked as debated.
func (a *Aggregator) Aggregate(ctx context.Context, q model.Question, ans model.Answer, round1 []model.JudgeScore) (model.AggregatedScore, error) {
	if len(round1) == 0 {
		return model.AggregatedScore{}, fmt.Errorf("answer %s: %w", ans.ID, scoring.ErrNoValidJudges)
	}
	first := slices.Clone(round1)
	out := model.AggregatedScore{
		AnswerID:           ans.ID,
		FinalScore:         Mean(first),
		DisagreementSpread: Spread(first),
		Rounds:             [][]model.JudgeScore{first},
	}
	if out.DisagreementSpread <= a.threshold || a.judges == nil {
		return out, nil
	}

	metrics.RecordDebateTriggered()
	out.Debated = true
	a.logger.Debug(ctx, "judges disagree, debating",
		logger.String("answer_id", ans.ID),
		logger.Float64("spread", out.DisagreementSpread),
		logger.Float64("threshold", a.threshold),
	)

	second, err := a.judges.Rejudge(ctx, q, ans, first)
	if err != nil || len(second) == 0 {
		if err == nil {
			err = scoring.ErrNoValidJudges
		}
		a.logger.Warn(ctx, "debate round produced no valid scores, keeping first round",
			logger.String("answer_id", ans.ID),
			logger.Error(err),
		)
		return out, nil
	}
	second = slices.Clone(second)
	out.Rounds = append(out.Rounds, second)
	out.FinalScore = Mean(second)
	out.DisagreementSpread = Spread(second)
	return out, nil
}

// Mean returns the arithmetic mean of the scores, or 0 for none.
func Mean(scores []model.JudgeScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

// Spread returns max - min of the scores, or 0 for none.
func Spread(scores []model.JudgeScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	lo, hi := scores[0].Score, scores[0].Score
	for _, s := range scores[1:] {
		lo = min(lo, s.Score)
		hi = max(hi, s.Score)
	}
	return hi - lo
}
