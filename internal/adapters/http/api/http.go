// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	service "github.com/bhaveshbillionaier19/portkeyHAckathon/internal/app"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/classifier"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/routing"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ChatDependencies
	PerformanceDependencies
	EvaluationDependencies
	StatsProvider
}

// ChatDependencies serve /chat and /classify.
type ChatDependencies interface {
	Handle(ctx context.Context, prompt string, history []model.Message) (service.ChatResult, error)
	Classify(ctx context.Context, prompt string) (classifier.Result, error)
}

// PerformanceDependencies serve /performance and /best-model.
type PerformanceDependencies interface {
	Table() *model.PerformanceTable
	Best(c types.Category) (model.CategoryStat, error)
	Plan(c types.Category) (routing.Plan, error)
}

// EvaluationDependencies serve /evaluations.
type EvaluationDependencies interface {
	TriggerRun(ctx context.Context, idempotencyKey string) (string, bool, error)
	GetRun(ctx context.Context, runID string) (orchestrator.RunResult, error)
	Runs(ctx context.Context, limit int) ([]orchestrator.RunResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	statusHandler      *StatusHandler
	chatHandler        *ChatHandler
	performanceHandler *PerformanceHandler
	evaluationsHandler *EvaluationsHandler
}

// Option applies a configuration option to the Server.
type Option func(*options)

type options struct {
	logger logger.Logger
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	r := responder{logger: o.logger}
	return &Server{
		statusHandler:      NewStatusHandler(deps),
		chatHandler:        NewChatHandler(deps, r),
		performanceHandler: NewPerformanceHandler(deps, r),
		evaluationsHandler: NewEvaluationsHandler(deps, r),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.statusHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statusHandler.HandleStats, "stats"))
	mux.HandleFunc("/chat", MetricsMiddleware(s.chatHandler.HandleChat, "chat"))
	mux.HandleFunc("/classify", MetricsMiddleware(s.chatHandler.HandleClassify, "classify"))
	mux.HandleFunc("/performance", MetricsMiddleware(s.performanceHandler.HandlePerformance, "performance"))
	mux.HandleFunc("/best-model", MetricsMiddleware(s.performanceHandler.HandleBestModel, "best_model"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(s.performanceHandler.HandleRecommendations, "recommendations"))
	mux.HandleFunc("/evaluations", MetricsMiddleware(s.evaluationsHandler.HandleEvaluations, "evaluations"))
	mux.HandleFunc("/evaluations/", MetricsMiddleware(s.evaluationsHandler.HandleGetEvaluation, "evaluation"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// responder writes error responses and logs them once with their op.
type responder struct {
	logger logger.Logger
}

func (r responder) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error(ctx, "request failed", logger.String("code", code), logger.Int("status", status), logger.Error(err))
	} else {
		r.logger.Debug(ctx, "request rejected", logger.String("code", code), logger.Int("status", status), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
