// Package service wires the routing engine and the evaluation pipeline into
// the operations exposed by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/archive"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/questionset"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/repository"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/config"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/classifier"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/dedupe"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/routing"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/safety"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// ChatMetrics reports the usage of the call that produced a chat response.
type ChatMetrics struct {
	Cost         float64 `json:"cost"`
	Tokens       int     `json:"tokens"`
	TokensInput  int     `json:"tokens_input"`
	TokensOutput int     `json:"tokens_output"`
	LatencyMS    int64   `json:"latency_ms"`
}

// ChatResult is the outcome of Handle.
type ChatResult struct {
	ResponseText   string            `json:"response"`
	ModelUsed      string            `json:"model_used"`
	Category       types.Category    `json:"category"`
	Switched       bool              `json:"model_switched"`
	SwitchReason   *string           `json:"switch_reason"`
	Metrics        ChatMetrics       `json:"metrics"`
	Classification classifier.Result `json:"classification"`
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started      bool               `json:"started"`
	Models       int                `json:"models"`
	Candidates   int                `json:"candidates"`
	Judges       []string           `json:"judges"`
	Questions    int                `json:"questions"`
	Strategy     string             `json:"strategy"`
	TableVersion uint64             `json:"table_version"`
	TableEntries int                `json:"table_entries"`
	TableRunID   string             `json:"table_run_id,omitempty"`
	State        orchestrator.State `json:"state"`
	ActiveRunID  string             `json:"active_run_id,omitempty"`
	RunsHeld     int                `json:"runs_held"`
	DedupeKeys   int                `json:"dedupe_keys"`
	Archive      bool               `json:"archive"`
}

// Service implements the API dependencies of the router.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	registry   *model.Registry
	candidates *model.Registry
	questions  []model.Question
	runConfig  orchestrator.RunConfig
	strategy   routing.Strategy

	gw         gateway.Gateway
	classifier *classifier.Classifier
	router     *routing.Engine
	store      *repository.TableStore
	runs       *repository.History[orchestrator.RunResult]
	deduper    dedupe.Deduper
	orch       *orchestrator.Orchestrator
	archive    *archive.Archive

	started    bool
	runCtx     context.Context
	cancelRuns context.CancelFunc
	inflight   sync.WaitGroup
	background sync.WaitGroup

	logger logger.Logger
}

// New builds a service from validated configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	var err error
	if s.registry, err = cfg.Registry(); err != nil {
		return nil, err
	}
	if s.candidates, err = cfg.Candidates(); err != nil {
		return nil, err
	}
	if s.questions == nil {
		if s.questions, err = questionset.Load(cfg.Evaluation.QuestionSet); err != nil {
			return nil, err
		}
	}
	s.runConfig = cfg.RunConfig()

	if s.gw == nil {
		s.gw = newGateway(cfg, s.registry, s.logger.Named("gateway"))
	}
	checker, err := safety.NewChecker(
		safety.WithBlockPII(cfg.Safety.BlockPII),
		safety.WithDenyPatterns(cfg.Safety.DenyPatterns...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: safety: %w", config.ErrInvalidConfig, err)
	}
	s.strategy, _ = routing.ParseStrategy(cfg.Routing.Strategy)
	classifierDefault, _ := types.ParseCategory(cfg.Classifier.DefaultCategory)
	routingDefault, _ := types.ParseCategory(cfg.Routing.DefaultCategory)

	s.store = repository.NewTableStore(repository.WithLogger(s.logger.Named("repository")))
	s.runs = repository.NewHistory[orchestrator.RunResult](cfg.History.Size)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.Dedupe.Size))
	s.classifier = classifier.New(s.gw,
		classifier.WithModel(cfg.Classifier.Model),
		classifier.WithDefaultCategory(classifierDefault),
		classifier.WithLogger(s.logger.Named("classifier")),
	)
	s.router = routing.New(s.store, s.registry, s.gw,
		routing.WithDefaultCategory(routingDefault),
		routing.WithStrategy(s.strategy),
		routing.WithColdStart(s.candidates),
		routing.WithChecker(checker),
		routing.WithLogger(s.logger.Named("routing")),
	)
	return s, nil
}

func newGateway(cfg *config.Config, registry *model.Registry, log logger.Logger) *gateway.Client {
	retry := gateway.DefaultRetryConfig()
	retry.MaxRetries = cfg.Gateway.MaxRetries
	opts := []gateway.Option{
		gateway.WithProvider(model.ProviderPortkey, gateway.NewOpenAIProvider(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, nil)),
		gateway.WithRateLimit(cfg.Gateway.RequestsPerSecond, cfg.Gateway.Burst),
		gateway.WithRetry(retry),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithMaxTokens(cfg.Gateway.MaxTokens),
		gateway.WithLogger(log),
	}
	if cfg.Gateway.AnthropicAPIKey != "" {
		opts = append(opts, gateway.WithProvider(model.ProviderAnthropic,
			gateway.NewAnthropicProvider(cfg.Gateway.AnthropicBaseURL, cfg.Gateway.AnthropicAPIKey, nil)))
	}
	return gateway.New(registry, opts...)
}

// Start opens the archive, restores the last published table and starts the
// evaluation schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting router service...")

	orchOpts := []orchestrator.Option{
		orchestrator.WithWorkers(s.cfg.Evaluation.Workers),
		orchestrator.WithQueueSize(s.cfg.Evaluation.QueueSize),
		orchestrator.WithJudgeRegistry(s.registry),
		orchestrator.WithLogger(s.logger.Named("orchestrator")),
	}
	if path := s.cfg.Archive.Path; path != "" {
		a, err := archive.Open(ctx, path, archive.WithLogger(s.logger.Named("archive")))
		if err != nil {
			return err
		}
		s.archive = a
		orchOpts = append(orchOpts, orchestrator.WithArchiver(a))
		s.restore(ctx)
	}
	s.orch = orchestrator.New(s.gw, s.store, orchOpts...)

	s.runCtx, s.cancelRuns = context.WithCancel(context.WithoutCancel(ctx))
	if every := s.cfg.Evaluation.Schedule; every > 0 {
		s.background.Add(1)
		go s.schedule(s.runCtx, every)
	}

	s.started = true
	s.logger.Info(ctx, "router service started",
		logger.Int("models", s.registry.Len()),
		logger.Int("candidates", s.candidates.Len()),
		logger.Int("questions", len(s.questions)),
		logger.Strings("judges", s.runConfig.Judges),
		logger.Duration("schedule", s.cfg.Evaluation.Schedule),
		logger.Bool("archive", s.archive != nil),
	)
	return nil
}

func (s *Service) restore(ctx context.Context) {
	t, err := s.archive.LatestTable(ctx)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return
	case err != nil:
		s.logger.Warn(ctx, "loading archived table failed", logger.Error(err))
		return
	}
	if err := s.store.Restore(ctx, t); err != nil {
		s.logger.Warn(ctx, "restoring archived table failed", logger.Error(err))
	}
}

func (s *Service) schedule(ctx context.Context, every time.Duration) {
	defer s.background.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runID, _, err := s.TriggerRun(ctx, "")
			if err != nil {
				s.logger.Warn(ctx, "scheduled evaluation not started", logger.Error(err))
				continue
			}
			s.logger.Info(ctx, "scheduled evaluation started", logger.String("run_id", runID))
		}
	}
}

// Stop cancels any active run, waits for it to finish and closes the archive.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancelRuns()
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping router service...")
	s.background.Wait()
	s.inflight.Wait()
	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			s.logger.Warn(ctx, "closing archive failed", logger.Error(err))
		}
	}
	s.logger.Info(ctx, "router service stopped")
}

// Classify labels a prompt.
func (s *Service) Classify(ctx context.Context, prompt string) (classifier.Result, error) {
	return s.classifier.Classify(ctx, prompt)
}

// Handle classifies a prompt, routes it and returns the model's response.
func (s *Service) Handle(ctx context.Context, prompt string, history []model.Message) (ChatResult, error) {
	class, err := s.classifier.Classify(ctx, prompt)
	if err != nil {
		return ChatResult{}, err
	}
	out, err := s.router.Route(ctx, routing.Request{Category: class.Category, Prompt: prompt, History: history})
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{
		ResponseText: out.Response.Text,
		ModelUsed:    out.Decision.ModelID,
		Category:     out.Decision.Category,
		Switched:     out.Decision.Switched,
		SwitchReason: out.Decision.SwitchReason,
		Metrics: ChatMetrics{
			Cost:         out.Response.Cost,
			Tokens:       out.Response.Tokens(),
			TokensInput:  out.Response.TokensInput,
			TokensOutput: out.Response.TokensOutput,
			LatencyMS:    out.Response.LatencyMS(),
		},
		Classification: class,
	}, nil
}

// Table returns the live performance table, nil before the first publication.
func (s *Service) Table() *model.PerformanceTable {
	return s.store.Current()
}

// Best returns the top-ranked model for c.
func (s *Service) Best(c types.Category) (model.CategoryStat, error) {
	return s.store.Best(c)
}

// Plan resolves the primary and fallback models a request of category c would use.
func (s *Service) Plan(c types.Category) (routing.Plan, error) {
	return s.router.Plan(c)
}

// TriggerRun starts an evaluation sweep in the background. A repeated
// idempotencyKey returns the run it started with existing set to true.
func (s *Service) TriggerRun(ctx context.Context, idempotencyKey string) (runID string, existing bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	runID = uuid.NewString()
	if idempotencyKey != "" {
		if prior, seen := s.deduper.SeenOrRecord(ctx, idempotencyKey, runID); seen {
			return prior, true, nil
		}
	}

	cfg := s.runConfig
	cfg.RunID = runID
	s.runs.Put(runID, orchestrator.RunResult{RunID: runID, Status: orchestrator.StatusRunning, StartedAt: time.Now().UTC()})
	s.inflight.Add(1)
	_, err = s.orch.StartEvaluation(s.runCtx, s.questions, s.candidates, cfg, func(res orchestrator.RunResult, _ error) {
		defer s.inflight.Done()
		s.runs.Put(res.RunID, res)
	})
	if err != nil {
		s.inflight.Done()
		s.runs.Delete(runID)
		if idempotencyKey != "" {
			s.deduper.Forget(ctx, idempotencyKey)
		}
		return "", false, err
	}
	s.logger.Info(ctx, "evaluation triggered",
		logger.String("run_id", runID),
		logger.Bool("idempotent", idempotencyKey != ""),
	)
	return runID, false, nil
}

// GetRun returns a run by ID from memory or the archive.
func (s *Service) GetRun(ctx context.Context, runID string) (orchestrator.RunResult, error) {
	if r, ok := s.runs.Get(runID); ok {
		return r, nil
	}
	if s.archive != nil {
		r, err := s.archive.Run(ctx, runID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, archive.ErrNotFound) {
			return orchestrator.RunResult{}, err
		}
	}
	return orchestrator.RunResult{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// Runs returns up to limit recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]orchestrator.RunResult, error) {
	if recent := s.runs.Recent(limit); len(recent) > 0 || s.archive == nil {
		return recent, nil
	}
	return s.archive.RecentRuns(ctx, limit)
}

// State returns the pipeline state and the active run ID.
func (s *Service) State() (orchestrator.State, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.orch == nil {
		return orchestrator.Idle, ""
	}
	return s.orch.State()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	state, active := s.State()
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:     s.started,
		Models:      s.registry.Len(),
		Candidates:  s.candidates.Len(),
		Judges:      append([]string(nil), s.runConfig.Judges...),
		Questions:   len(s.questions),
		Strategy:    string(s.strategy),
		State:       state,
		ActiveRunID: active,
		RunsHeld:    s.runs.Len(),
		DedupeKeys:  s.deduper.Size(),
		Archive:     s.archive != nil,
	}
	if t := s.store.Current(); t != nil {
		st.TableVersion = t.Version()
		st.TableEntries = t.Entries()
		st.TableRunID = t.RunID()
	}
	return st
}
