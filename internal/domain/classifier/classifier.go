// Package classifier maps a free-text prompt to one category of the taxonomy.
// It asks a model first, falls back to keyword heuristics and finally to a
// configured default, so that classification itself never fails.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Method records how a category was chosen.
type Method string

// Classification methods, from most to least trusted.
const (
	MethodLLM       Method = "llm"
	MethodHeuristic Method = "heuristic"
	MethodDefault   Method = "default"
)

// Confidence reported per method.
const (
	ConfidenceLLM       = 0.9
	ConfidenceHeuristic = 0.6
	ConfidenceDefault   = 0.3
)

const labelMaxTokens = 8

var errNoModel = errors.New("no classifier model configured")

// Result is the outcome of Classify.
type Result struct {
	Category   types.Category `json:"category"`
	Method     Method         `json:"method"`
	Confidence float64        `json:"confidence"`
}

// Classifier labels prompts.
type Classifier struct {
	gw              gateway.Gateway
	model           string
	defaultCategory types.Category
	logger          logger.Logger
}

// New creates a classifier. gw may be nil, which disables the LLM step.
func New(gw gateway.Gateway, opts ...Option) *Classifier {
	c := &Classifier{
		gw:              gw,
		defaultCategory: types.Knowledge,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("classifier")
	}
	return c
}

// Classify returns the category for text. It fails only with ErrInvalidInput.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: prompt is empty", ErrInvalidInput)
	}

	cat, err := c.askModel(ctx, text)
	if err == nil {
		return c.done(ctx, Result{Category: cat, Method: MethodLLM, Confidence: ConfidenceLLM}), nil
	}
	c.logger.Debug(ctx, "llm classification unavailable",
		logger.Error(fmt.Errorf("%w: %w", ErrClassificationFallback, err)))

	if cat, ok := Heuristic(text); ok {
		return c.done(ctx, Result{Category: cat, Method: MethodHeuristic, Confidence: ConfidenceHeuristic}), nil
	}
	return c.done(ctx, Result{Category: c.defaultCategory, Method: MethodDefault, Confidence: ConfidenceDefault}), nil
}

func (c *Classifier) done(ctx context.Context, r Result) Result {
	metrics.RecordClassification(string(r.Method), string(r.Category))
	c.logger.Debug(ctx, "prompt classified",
		logger.String("category", string(r.Category)),
		logger.String("method", string(r.Method)),
		logger.Float64("confidence", r.Confidence),
	)
	return r
}

func (c *Classifier) askModel(ctx context.Context, text string) (types.Category, error) {
	if c.gw == nil || c.model == "" {
		return "", errNoModel
	}
	zero := 0.0
	resp, err := c.gw.Invoke(ctx, gateway.Request{
		ModelID:     c.model,
		System:      "You are a strict classification system. Reply with a single category label and nothing else.",
		Prompt:      labelPrompt(text),
		MaxTokens:   labelMaxTokens,
		Temperature: &zero,
	})
	if err != nil {
		return "", err
	}
	return types.ParseCategory(normalizeLabel(resp.Text))
}

func labelPrompt(text string) string {
	var b strings.Builder
	labels := make([]string, 0, len(types.All()))
	for _, cat := range types.All() {
		labels = append(labels, string(cat))
	}
	fmt.Fprintf(&b, "Classify the request below. Answer with exactly one label from: %s.\n\n", strings.Join(labels, ", "))
	b.WriteString("Definitions:\n")
	for _, cat := range types.All() {
		fmt.Fprintf(&b, "- %s: %s\n", cat, cat.Description())
	}
	fmt.Fprintf(&b, "\nRequest: %q\n", text)
	return b.String()
}

// normalizeLabel strips quotes, punctuation and surrounding noise from a model reply.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if _, after, ok := strings.Cut(s, ":"); ok {
		s = after
	}
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.ToLower(s)
}
