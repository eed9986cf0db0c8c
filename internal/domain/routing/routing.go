// Package routing resolves a category to a primary and a fallback model from
// the live performance table, and invokes them with a single runtime fallback.
package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/safety"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// TableReader returns the live table with a single atomic read.
type TableReader interface {
	Current() *model.PerformanceTable
}

// Checker vets a model response before it is returned.
type Checker interface {
	Check(text string) safety.Verdict
}

// Request is one prompt to route.
type Request struct {
	Category types.Category
	Prompt   string
	History  []model.Message
}

// Outcome is the routing decision together with the response that was returned.
type Outcome struct {
	Decision model.RoutingDecision
	Response gateway.Response
}

// Plan is the ordered candidate pair for a category.
type Plan struct {
	Category types.Category `json:"category"`
	Primary  string         `json:"primary"`
	Fallback string         `json:"fallback,omitempty"`
	// Source is "table", "default_category" or "registry".
	Source string `json:"source"`
}

// Engine is stateless apart from its collaborators.
type Engine struct {
	table           TableReader
	registry        *model.Registry
	coldStart       *model.Registry
	gw              gateway.Gateway
	checker         Checker
	defaultCategory types.Category
	strategy        Strategy
	logger          logger.Logger
}

// New creates a routing engine.
func New(table TableReader, registry *model.Registry, gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		table:           table,
		registry:        registry,
		gw:              gw,
		defaultCategory: types.Knowledge,
		strategy:        BestQuality,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.coldStart == nil {
		e.coldStart = registry
	}
	if e.checker == nil {
		e.checker = &safety.Checker{}
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("routing")
	}
	return e
}

// Plan resolves c to its primary and fallback models. A category with no
// ranking uses the default category's ranking, and with neither the cold-start
// models sorted by ID are used. Models missing from the registry are skipped.
func (e *Engine) Plan(c types.Category) (Plan, error) {
	table := e.table.Current()

	source := "table"
	ids := e.ranked(table, c)
	if len(ids) == 0 && c != e.defaultCategory {
		source = "default_category"
		ids = e.ranked(table, e.defaultCategory)
	}
	if len(ids) == 0 {
		source = "registry"
		ids = slices.DeleteFunc(e.coldStart.IDs(), func(id string) bool { return !e.registry.Has(id) })
		slices.Sort(ids)
	}
	if len(ids) == 0 {
		return Plan{}, fmt.Errorf("category %s: %w", c, ErrNoCandidates)
	}

	p := Plan{Category: c, Primary: ids[0], Source: source}
	if len(ids) > 1 {
		p.Fallback = ids[1]
	}
	return p, nil
}

func (e *Engine) ranked(table *model.PerformanceTable, c types.Category) []string {
	stats := e.strategy.Order(table.Ranking(c))
	ids := make([]string, 0, len(stats))
	for _, s := range stats {
		if e.registry.Has(s.ModelID) {
			ids = append(ids, s.ModelID)
		}
	}
	return ids
}

// Route invokes the primary model for req.Category and, if it fails or its
// response is rejected by the safety check, the fallback once. No third model
// is ever tried.
func (e *Engine) Route(ctx context.Context, req Request) (Outcome, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Outcome{}, fmt.Errorf("%w: prompt is empty", ErrInvalidInput)
	}
	plan, err := e.Plan(req.Category)
	if err != nil {
		metrics.RecordRoutingFailure()
		return Outcome{}, err
	}

	resp, primaryErr := e.attempt(ctx, plan.Primary, req)
	if primaryErr == nil {
		return e.decide(ctx, plan, plan.Primary, resp, nil), nil
	}

	reason, kind := switchReason(plan.Primary, primaryErr)
	switch {
	case ctx.Err() != nil:
		metrics.RecordRoutingFailure()
		return Outcome{}, fmt.Errorf("%w: primary %s: %w", ErrRoutingExhausted, plan.Primary, primaryErr)
	case plan.Fallback == "":
		metrics.RecordRoutingFailure()
		return Outcome{}, fmt.Errorf("%w: primary %s: %w; no fallback model", ErrRoutingExhausted, plan.Primary, primaryErr)
	}

	e.logger.Warn(ctx, "primary model failed, switching to fallback",
		logger.String("category", string(req.Category)),
		logger.String("primary", plan.Primary),
		logger.String("fallback", plan.Fallback),
		logger.String("kind", kind),
		logger.Error(primaryErr),
	)
	metrics.RecordRoutingSwitch(kind)

	resp, fallbackErr := e.attempt(ctx, plan.Fallback, req)
	if fallbackErr != nil {
		metrics.RecordRoutingFailure()
		return Outcome{}, fmt.Errorf("%w: primary %s: %w; fallback %s: %w",
			ErrRoutingExhausted, plan.Primary, primaryErr, plan.Fallback, fallbackErr)
	}
	return e.decide(ctx, plan, plan.Fallback, resp, &reason), nil
}

// attempt invokes one model and vets its response.
func (e *Engine) attempt(ctx context.Context, modelID string, req Request) (gateway.Response, error) {
	resp, err := e.gw.Invoke(ctx, gateway.Request{ModelID: modelID, Prompt: req.Prompt, History: req.History})
	if err != nil {
		return gateway.Response{}, err
	}
	if err := e.checker.Check(resp.Text).Err(); err != nil {
		return gateway.Response{}, err
	}
	return resp, nil
}

func (e *Engine) decide(ctx context.Context, plan Plan, used string, resp gateway.Response, reason *string) Outcome {
	d := model.RoutingDecision{
		Category:     plan.Category,
		ModelID:      used,
		Switched:     reason != nil,
		SwitchReason: reason,
	}
	metrics.RecordRoutingDecision(string(d.Category), d.ModelID, d.Switched)
	e.logger.Debug(ctx, "request routed",
		logger.String("category", string(d.Category)),
		logger.String("model", d.ModelID),
		logger.String("source", plan.Source),
		logger.Bool("switched", d.Switched),
	)
	return Outcome{Decision: d, Response: resp}
}

// switchReason describes why the primary was abandoned and names the failure kind.
func switchReason(primary string, err error) (string, string) {
	if errors.Is(err, safety.ErrSafetyRejection) {
		detail := strings.TrimPrefix(err.Error(), safety.ErrSafetyRejection.Error()+": ")
		return fmt.Sprintf("primary model %s response failed safety check: %s", primary, detail), "safety"
	}
	kind := gateway.Kind(err)
	return fmt.Sprintf("primary model %s unavailable: %s", primary, kind), kind
}
