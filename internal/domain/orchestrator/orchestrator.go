// Package orchestrator drives an evaluation sweep through its stages: every
// candidate answers every question, a judge panel scores the answers, the
// scores are ranked, and the resulting table is published atomically.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/mq/queue"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/mq/worker"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/debate"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/ranking"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/scoring"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Default orchestrator configuration constants.
const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// Publisher makes a table live.
type Publisher interface {
	Publish(ctx context.Context, t *model.PerformanceTable) (*model.PerformanceTable, error)
}

// Archiver persists run outcomes.
type Archiver interface {
	SaveTable(ctx context.Context, t *model.PerformanceTable) error
	SaveRun(ctx context.Context, r RunResult) error
}

// Orchestrator runs at most one evaluation at a time.
type Orchestrator struct {
	gw            gateway.Gateway
	publisher     Publisher
	archiver      Archiver
	judgeRegistry *model.Registry
	workers       int
	queueSize     int
	observers     []func(string, State)
	logger        logger.Logger

	running atomic.Bool
	mu      sync.RWMutex
	state   State
	runID   string
}

// New creates an orchestrator that calls models through gw and publishes to p.
func New(gw gateway.Gateway, p Publisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:        gw,
		publisher: p,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		state:     Idle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("orchestrator")
	}
	return o
}

// State returns the current pipeline state and the active run ID, if any.
func (o *Orchestrator) State() (State, string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state, o.runID
}

// RunEvaluation executes one sweep synchronously. The returned error is nil
// exactly when the result status is published.
func (o *Orchestrator) RunEvaluation(ctx context.Context, questions []model.Question, registry *model.Registry, cfg RunConfig) (RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return RunResult{RunID: cfg.RunID, Status: StatusFailed}, ErrRunInProgress
	}
	defer o.running.Store(false)
	return o.run(ctx, questions, registry, cfg)
}

// StartEvaluation claims the run slot and executes the sweep in the background,
// calling done with its outcome. It returns the run ID, or ErrRunInProgress.
func (o *Orchestrator) StartEvaluation(ctx context.Context, questions []model.Question, registry *model.Registry, cfg RunConfig, done func(RunResult, error)) (string, error) {
	if !o.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	go func() {
		defer o.running.Store(false)
		res, err := o.run(ctx, questions, registry, cfg)
		if done != nil {
			done(res, err)
		}
	}()
	return cfg.RunID, nil
}

// run is one sweep: Loading, Evaluating, Judging, Ranking and Published.
func (o *Orchestrator) run(ctx context.Context, questions []model.Question, registry *model.Registry, cfg RunConfig) (RunResult, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	r := &sweep{
		o:         o,
		cfg:       cfg,
		questions: append([]model.Question(nil), questions...),
		registry:  registry,
		log:       o.logger.With(logger.String("run_id", cfg.RunID)),
		result:    RunResult{RunID: cfg.RunID, Status: StatusRunning, StartedAt: time.Now().UTC()},
	}
	defer o.transition(ctx, cfg.RunID, Idle)

	err := r.execute(ctx)
	r.result.FinishedAt = time.Now().UTC()
	if err != nil {
		r.result.Status = StatusFailed
		if r.result.FailureSummary.Reason == "" {
			r.result.FailureSummary.Reason = err.Error()
		}
		o.transition(ctx, cfg.RunID, Failed)
		r.log.Error(ctx, "evaluation run failed",
			logger.String("stage", string(r.result.FailureSummary.Stage)),
			logger.Int("failed_pairs", r.result.FailureSummary.FailedPairs),
			logger.Int("total_pairs", r.result.FailureSummary.TotalPairs),
			logger.Error(err),
		)
	} else {
		r.result.Status = StatusPublished
		r.log.Info(ctx, "evaluation run published",
			logger.Uint64("version", r.result.Table.Version()),
			logger.Int("entries", r.result.Table.Entries()),
			logger.Duration("duration", r.result.FinishedAt.Sub(r.result.StartedAt)),
		)
	}
	metrics.RecordRunOutcome(string(r.result.Status), r.result.FinishedAt.Sub(r.result.StartedAt), r.result.FailureSummary.Fraction)
	o.archiveRun(context.WithoutCancel(ctx), r)
	return r.result, err
}

func (o *Orchestrator) transition(ctx context.Context, runID string, to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.runID = runID
	if to == Idle {
		o.runID = ""
	}
	o.mu.Unlock()

	metrics.RecordRunTransition(string(to))
	o.logger.Info(ctx, "run state changed",
		logger.String("run_id", runID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
	)
	for _, fn := range o.observers {
		fn(runID, to)
	}
}

func (o *Orchestrator) archiveRun(ctx context.Context, r *sweep) {
	if o.archiver == nil {
		return
	}
	if r.result.Table != nil {
		if err := o.archiver.SaveTable(ctx, r.result.Table); err != nil {
			r.log.Warn(ctx, "archiving table failed", logger.Error(err))
		}
	}
	if err := o.archiver.SaveRun(ctx, r.result); err != nil {
		r.log.Warn(ctx, "archiving run failed", logger.Error(err))
	}
}

// sweep holds the state of one run.
type sweep struct {
	o         *Orchestrator
	cfg       RunConfig
	questions []model.Question
	registry  *model.Registry
	log       logger.Logger

	mu       sync.Mutex
	failures []PairFailure
	result   RunResult
}

func (r *sweep) execute(ctx context.Context) error {
	r.enter(ctx, Loading)
	if err := r.load(); err != nil {
		return err
	}
	total := r.registry.Len() * len(r.questions)
	r.result.FailureSummary.TotalPairs = total

	r.enter(ctx, Evaluating)
	answers := r.evaluate(ctx)
	if err := r.checkStage(ctx, Evaluating, total); err != nil {
		return err
	}

	r.enter(ctx, Judging)
	samples := r.judge(ctx, answers)
	if err := r.checkStage(ctx, Judging, total); err != nil {
		return err
	}

	r.enter(ctx, Ranking)
	table, err := ranking.Rank(r.result.RunID, time.Now(), samples)
	if err != nil {
		r.result.FailureSummary.Stage = Ranking
		return fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}

	published, err := r.o.publisher.Publish(ctx, table)
	if err != nil {
		r.result.FailureSummary.Stage = Ranking
		return fmt.Errorf("publish table: %w", err)
	}
	r.result.Table = published
	r.enter(ctx, Published)
	return nil
}

func (r *sweep) enter(ctx context.Context, s State) {
	r.o.transition(ctx, r.result.RunID, s)
}

// load validates questions, candidates and judges before any model is called.
func (r *sweep) load() error {
	fail := func(err error) error {
		r.result.FailureSummary.Stage = Loading
		return err
	}
	if err := r.cfg.Validate(); err != nil {
		return fail(err)
	}
	if len(r.questions) == 0 {
		return fail(fmt.Errorf("%w: question set is empty", ErrConfiguration))
	}
	if r.registry.Len() == 0 {
		return fail(fmt.Errorf("%w: model registry is empty", ErrConfiguration))
	}
	seen := make(map[string]struct{}, len(r.questions))
	for _, q := range r.questions {
		switch {
		case strings.TrimSpace(q.ID) == "":
			return fail(fmt.Errorf("%w: question with empty id", ErrConfiguration))
		case !q.Category.Valid():
			return fail(fmt.Errorf("%w: question %s has unknown category %q", ErrConfiguration, q.ID, q.Category))
		case strings.TrimSpace(q.Text) == "":
			return fail(fmt.Errorf("%w: question %s has no text", ErrConfiguration, q.ID))
		}
		if _, dup := seen[q.ID]; dup {
			return fail(fmt.Errorf("%w: duplicate question id %s", ErrConfiguration, q.ID))
		}
		seen[q.ID] = struct{}{}
	}
	judges := r.o.judgeRegistry
	if judges == nil {
		judges = r.registry
	}
	for _, j := range r.cfg.Judges {
		if !judges.Has(j) {
			return fail(fmt.Errorf("%w: judge %s is not a registered model", ErrConfiguration, j))
		}
	}
	return nil
}

func (r *sweep) recordFailure(stage State, questionID, modelID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, PairFailure{QuestionID: questionID, ModelID: modelID, Stage: stage, Reason: err.Error()})
}

// checkStage fails the run on cancellation or when failed/total exceeds the tolerance.
func (r *sweep) checkStage(ctx context.Context, stage State, total int) error {
	r.mu.Lock()
	fs := &r.result.FailureSummary
	fs.Pairs = append([]PairFailure(nil), r.failures...)
	fs.FailedPairs = len(r.failures)
	r.mu.Unlock()
	if total > 0 {
		fs.Fraction = float64(fs.FailedPairs) / float64(total)
	}

	if err := ctx.Err(); err != nil {
		fs.Stage = stage
		return fmt.Errorf("run cancelled during %s: %w", stage, err)
	}
	if fs.Fraction > r.cfg.MaxFailureFraction {
		fs.Stage = stage
		return fmt.Errorf("%w: %d of %d pairs failed after %s (%.2f > %.2f)",
			ErrInsufficientData, fs.FailedPairs, total, stage, fs.Fraction, r.cfg.MaxFailureFraction)
	}
	return nil
}

// pool runs submit's tasks on a fresh bounded pool and waits for them.
func (r *sweep) pool(ctx context.Context, submit func(enqueue func(queue.Task) error)) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(r.o.queueSize))
	p := worker.NewPool(r.o.workers, q, worker.WithLogger(r.log))
	p.Start(ctx)
	submit(func(t queue.Task) error { return q.EnqueueWait(ctx, t) })
	_ = q.Close()
	p.Wait()
}

type pair struct {
	question model.Question
	answer   model.Answer
}

// evaluate asks every candidate every question.
func (r *sweep) evaluate(ctx context.Context) []pair {
	models := r.registry.Models()
	results := make([]*pair, len(models)*len(r.questions))
	done := make([]atomic.Bool, len(results))

	r.pool(ctx, func(enqueue func(queue.Task) error) {
		for mi, m := range models {
			for qi, q := range r.questions {
				idx := mi*len(r.questions) + qi
				err := enqueue(queue.Task{
					Name: "answer " + q.ID + "/" + m.ID,
					Run: func(ctx context.Context) error {
						defer done[idx].Store(true)
						a, err := r.answer(context.WithoutCancel(ctx), m, q)
						if err != nil {
							r.recordFailure(Evaluating, q.ID, m.ID, err)
							return err
						}
						results[idx] = &pair{question: q, answer: a}
						return nil
					},
				})
				if err != nil {
					return
				}
			}
		}
	})

	out := make([]pair, 0, len(results))
	for i := range results {
		switch {
		case results[i] != nil:
			out = append(out, *results[i])
		case !done[i].Load():
			m, q := models[i/len(r.questions)], r.questions[i%len(r.questions)]
			r.recordFailure(Evaluating, q.ID, m.ID, errors.New("not attempted: run cancelled"))
		}
	}
	return out
}

// answer runs one candidate call. Callers pass a context detached from run
// cancellation so a started call drains, bounded by CallTimeout.
func (r *sweep) answer(ctx context.Context, m model.Model, q model.Question) (model.Answer, error) {
	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}
	resp, err := r.o.gw.Invoke(ctx, gateway.Request{ModelID: m.ID, Prompt: q.Text})
	if err != nil {
		return model.Answer{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return model.Answer{}, errors.New("empty answer")
	}
	return model.Answer{
		ID:           uuid.NewString(),
		QuestionID:   q.ID,
		ModelID:      m.ID,
		Text:         resp.Text,
		TokensInput:  resp.TokensInput,
		TokensOutput: resp.TokensOutput,
		Cost:         resp.Cost,
		LatencyMS:    resp.LatencyMS(),
	}, nil
}

// judge scores every answer and aggregates disagreements through one debate round.
func (r *sweep) judge(ctx context.Context, answers []pair) []ranking.Sample {
	panel := scoring.NewPanel(r.o.gw, r.cfg.Judges,
		scoring.WithCallTimeout(r.cfg.CallTimeout),
		scoring.WithSelfReviewExcluded(r.cfg.ExcludeSelfReview),
		scoring.WithLogger(r.log),
	)
	agg := debate.New(panel, debate.WithThreshold(r.cfg.DisagreementThreshold), debate.WithLogger(r.log))

	results := make([]*ranking.Sample, len(answers))
	done := make([]atomic.Bool, len(answers))
	r.pool(ctx, func(enqueue func(queue.Task) error) {
		for i, p := range answers {
			err := enqueue(queue.Task{
				Name: "judge " + p.answer.ID,
				Run: func(ctx context.Context) error {
					defer done[i].Store(true)
					ctx = context.WithoutCancel(ctx)
					round1, err := panel.Score(ctx, p.question, p.answer)
					if err != nil {
						r.recordFailure(Judging, p.question.ID, p.answer.ModelID, err)
						return err
					}
					aggregated, err := agg.Aggregate(ctx, p.question, p.answer, round1)
					if err != nil {
						r.recordFailure(Judging, p.question.ID, p.answer.ModelID, err)
						return err
					}
					results[i] = &ranking.Sample{Question: p.question, Answer: p.answer, Aggregated: aggregated}
					return nil
				},
			})
			if err != nil {
				return
			}
		}
	})

	out := make([]ranking.Sample, 0, len(results))
	for i, s := range results {
		switch {
		case s != nil:
			out = append(out, *s)
		case !done[i].Load():
			r.recordFailure(Judging, answers[i].question.ID, answers[i].answer.ModelID, errors.New("not attempted: run cancelled"))
		}
	}
	return out
}
