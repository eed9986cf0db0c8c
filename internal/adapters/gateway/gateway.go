// Package gateway adapts upstream model providers to a single invoke capability:
// send a prompt to a registered model and receive text with token, cost and
// latency metrics, or a kinded error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Default client configuration.
const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 1024
)

// Request is one model invocation.
type Request struct {
	ModelID     string
	Prompt      string
	History     []model.Message
	System      string
	MaxTokens   int
	Temperature *float64
}

// Response is the normalized result of an invocation.
type Response struct {
	ModelID      string        `json:"model_id"`
	Text         string        `json:"text"`
	TokensInput  int           `json:"tokens_input"`
	TokensOutput int           `json:"tokens_output"`
	Cost         float64       `json:"cost"`
	Latency      time.Duration `json:"-"`
}

// Tokens returns total token usage.
func (r Response) Tokens() int { return r.TokensInput + r.TokensOutput }

// LatencyMS returns latency in whole milliseconds.
func (r Response) LatencyMS() int64 { return r.Latency.Milliseconds() }

// Gateway is the capability consumed by the classifier, router and judges.
type Gateway interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Gateway.
type Func func(ctx context.Context, req Request) (Response, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

// Completion is what a provider returns before pricing and timing.
type Completion struct {
	Text         string
	TokensInput  int
	TokensOutput int
}

// Provider talks to one upstream API. Errors must be *Error values.
type Provider interface {
	Complete(ctx context.Context, m model.Model, req Request) (Completion, error)
}

// Client routes invocations to providers by the model's provider metadata.
type Client struct {
	registry  *model.Registry
	providers map[model.Provider]Provider
	limiter   *rate.Limiter
	retry     RetryConfig
	timeout   time.Duration
	maxTokens int
	logger    logger.Logger
}

// New creates a gateway client over registry.
func New(registry *model.Registry, opts ...Option) *Client {
	c := &Client{
		registry:  registry,
		providers: make(map[model.Provider]Provider),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		retry:     DefaultRetryConfig(),
		timeout:   defaultTimeout,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("gateway")
	}
	return c
}

// Invoke sends req to its model, applying rate limiting, the per-call timeout
// and bounded backoff on upstream rate limiting.
func (c *Client) Invoke(ctx context.Context, req Request) (Response, error) {
	m, ok := c.registry.Lookup(req.ModelID)
	if !ok {
		return Response{}, &Error{Kind: ErrUnknownModel, Model: req.ModelID, Err: errors.New("not in registry")}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, &Error{Kind: ErrInvalidRequest, Model: m.ID, Err: errors.New("empty prompt")}
	}
	p, ok := c.providers[m.Provider]
	if !ok {
		return Response{}, &Error{Kind: ErrProvider, Model: m.ID, Err: fmt.Errorf("no provider configured for %q", m.Provider)}
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()
	completion, err := RetryWithBackoff(ctx, c.logger, c.retry, m.ID, isRateLimited, func() (Completion, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return Completion{}, &Error{Kind: ErrTransport, Model: m.ID, Err: err}
		}
		callCtx, cancel := c.callContext(ctx)
		defer cancel()
		return p.Complete(callCtx, m, req)
	})
	latency := time.Since(start)
	metrics.RecordGatewayCall(m.ID, Kind(err), latency)
	if err != nil {
		c.logger.Warn(ctx, "gateway call failed",
			logger.String("model", m.ID),
			logger.String("kind", Kind(err)),
			logger.Duration("latency", latency),
			logger.Error(err),
		)
		return Response{}, err
	}

	resp := Response{
		ModelID:      m.ID,
		Text:         completion.Text,
		TokensInput:  completion.TokensInput,
		TokensOutput: completion.TokensOutput,
		Cost:         m.Cost(completion.TokensInput, completion.TokensOutput),
		Latency:      latency,
	}
	metrics.RecordGatewayUsage(m.ID, resp.TokensInput, resp.TokensOutput, resp.Cost)
	c.logger.Debug(ctx, "gateway call completed",
		logger.String("model", m.ID),
		logger.Int("tokens", resp.Tokens()),
		logger.Float64("cost", resp.Cost),
		logger.Duration("latency", latency),
	)
	return resp, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// conversation flattens history plus the prompt into role/content turns,
// dropping empty turns and folding unknown roles into user turns.
func conversation(req Request) []model.Message {
	out := make([]model.Message, 0, len(req.History)+1)
	for _, h := range req.History {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		role := strings.ToLower(h.Role)
		if role != model.RoleAssistant && role != model.RoleSystem {
			role = model.RoleUser
		}
		out = append(out, model.Message{Role: role, Content: h.Content})
	}
	return append(out, model.Message{Role: model.RoleUser, Content: req.Prompt})
}
