// Package scoring implements the judge panel: several judge models score an
// answer independently, and can re-score it after seeing each other's reviews.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Default panel configuration constants.
const (
	defaultCallTimeout = 60 * time.Second
	judgeMaxTokens     = 300
	judgeTemperature   = 0.3
)

// Judge scores answers. Panel is the production implementation.
type Judge interface {
	Score(ctx context.Context, q model.Question, a model.Answer) ([]model.JudgeScore, error)
	Rejudge(ctx context.Context, q model.Question, a model.Answer, peers []model.JudgeScore) ([]model.JudgeScore, error)
}

// Panel fans an answer out to every judge model.
type Panel struct {
	gw          gateway.Gateway
	judges      []string
	concurrency int
	timeout     time.Duration
	excludeSelf bool
	logger      logger.Logger
}

// NewPanel creates a panel over the given judge model IDs.
func NewPanel(gw gateway.Gateway, judges []string, opts ...Option) *Panel {
	p := &Panel{
		gw:      gw,
		judges:  append([]string(nil), judges...),
		timeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency <= 0 {
		p.concurrency = max(len(p.judges), 1)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("scoring")
	}
	return p
}

// Judges returns the judge model IDs.
func (p *Panel) Judges() []string {
	return append([]string(nil), p.judges...)
}

// Score runs the blind first round. Failed or invalid judges are excluded, not
// counted as zero; ErrNoValidJudges is returned when none remain.
func (p *Panel) Score(ctx context.Context, q model.Question, a model.Answer) ([]model.JudgeScore, error) {
	return p.round(ctx, a, model.RoundBlind, func(string) string {
		return blindPrompt(q, a)
	})
}

// Rejudge runs the debate round: each judge sees every first-round review.
func (p *Panel) Rejudge(ctx context.Context, q model.Question, a model.Answer, peers []model.JudgeScore) ([]model.JudgeScore, error) {
	return p.round(ctx, a, model.RoundDebate, func(judge string) string {
		return debatePrompt(q, a, judge, peers)
	})
}

func (p *Panel) round(ctx context.Context, a model.Answer, round int, prompt func(judge string) string) ([]model.JudgeScore, error) {
	results := make([]*model.JudgeScore, len(p.judges))
	errs := make([]error, len(p.judges))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, judge := range p.judges {
		if p.excludeSelf && judge == a.ModelID {
			continue
		}
		g.Go(func() error {
			s, err := p.ask(ctx, judge, a, round, prompt(judge))
			if err != nil {
				errs[i] = fmt.Errorf("judge %s: %w", judge, err)
				p.exclude(ctx, judge, a, round, err)
				return nil
			}
			results[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	scores := make([]model.JudgeScore, 0, len(results))
	for _, s := range results {
		if s != nil {
			scores = append(scores, *s)
		}
	}
	if len(scores) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoValidJudges, err)
		}
		return nil, errors.Join(append([]error{ErrNoValidJudges}, errs...)...)
	}
	return scores, nil
}

func (p *Panel) ask(ctx context.Context, judge string, a model.Answer, round int, prompt string) (model.JudgeScore, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	temp := judgeTemperature
	resp, err := p.gw.Invoke(callCtx, gateway.Request{
		ModelID:     judge,
		System:      judgeSystem,
		Prompt:      prompt,
		MaxTokens:   judgeMaxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return model.JudgeScore{}, err
	}
	score, rationale, err := ParseJudgement(resp.Text)
	if err != nil {
		return model.JudgeScore{}, err
	}
	metrics.RecordJudgeScore(judge, round, score)
	return model.JudgeScore{
		AnswerID:     a.ID,
		JudgeModelID: judge,
		Score:        score,
		Rationale:    rationale,
		Round:        round,
	}, nil
}

func (p *Panel) exclude(ctx context.Context, judge string, a model.Answer, round int, err error) {
	reason := "gateway_" + gateway.Kind(err)
	switch {
	case errors.Is(err, ErrScoreOutOfRange):
		reason = "out_of_range"
	case errors.Is(err, ErrMalformedJudgement):
		reason = "malformed"
	}
	metrics.RecordJudgeExclusion(judge, reason)
	p.logger.Warn(ctx, "judge excluded",
		logger.String("judge", judge),
		logger.String("answer_id", a.ID),
		logger.String("model", a.ModelID),
		logger.Int("round", round),
		logger.String("reason", reason),
		logger.Error(err),
	)
}
