// Package routerctl implements the command line client for the router service.
package routerctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/http/api"
	service "github.com/bhaveshbillionaier19/portkeyHAckathon/internal/app"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// CategoryRanking is the body of GET /performance?category=.
type CategoryRanking struct {
	Version  uint64               `json:"version"`
	RunID    string               `json:"run_id"`
	Category types.Category       `json:"category"`
	Ranking  []model.CategoryStat `json:"ranking"`
}

// Client calls the router HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration, l logger.Logger) *Client {
	if l == nil {
		l = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  l,
	}
}

// Chat routes a prompt through POST /chat.
func (c *Client) Chat(ctx context.Context, prompt string, history []model.Message) (service.ChatResult, error) {
	var out service.ChatResult
	err := c.do(ctx, http.MethodPost, "/chat", api.ChatRequest{Prompt: prompt, ConversationHistory: history}, nil, &out)
	return out, err
}

// Classify labels a prompt through POST /classify.
func (c *Client) Classify(ctx context.Context, prompt string) (api.ClassifyResponse, error) {
	var out api.ClassifyResponse
	err := c.do(ctx, http.MethodPost, "/classify", api.ChatRequest{Prompt: prompt}, nil, &out)
	return out, err
}

// Table fetches the full performance table.
func (c *Client) Table(ctx context.Context) (*model.PerformanceTable, error) {
	out := &model.PerformanceTable{}
	if err := c.do(ctx, http.MethodGet, "/performance", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ranking fetches one category's ranking.
func (c *Client) Ranking(ctx context.Context, cat types.Category) (CategoryRanking, error) {
	var out CategoryRanking
	err := c.do(ctx, http.MethodGet, "/performance?category="+url.QueryEscape(string(cat)), nil, nil, &out)
	return out, err
}

// BestModel fetches the routing plan for a category.
func (c *Client) BestModel(ctx context.Context, cat types.Category) (api.BestModelResponse, error) {
	var out api.BestModelResponse
	err := c.do(ctx, http.MethodGet, "/best-model?category="+url.QueryEscape(string(cat)), nil, nil, &out)
	return out, err
}

// Recommendations fetches the trade-off report for a category. Zero budget or
// floor leaves the server default.
func (c *Client) Recommendations(ctx context.Context, cat types.Category, budget, floor float64) (api.RecommendationsResponse, error) {
	q := url.Values{"category": {string(cat)}}
	if budget > 0 {
		q.Set("budget", strconv.FormatFloat(budget, 'f', -1, 64))
	}
	if floor > 0 {
		q.Set("floor", strconv.FormatFloat(floor, 'f', -1, 64))
	}
	var out api.RecommendationsResponse
	err := c.do(ctx, http.MethodGet, "/recommendations?"+q.Encode(), nil, nil, &out)
	return out, err
}

// Trigger starts an evaluation run. An empty key disables deduplication.
func (c *Client) Trigger(ctx context.Context, idempotencyKey string) (api.TriggerResponse, error) {
	var out api.TriggerResponse
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{api.IdempotencyHeader: []string{idempotencyKey}}
	}
	err := c.do(ctx, http.MethodPost, "/evaluations", nil, header, &out)
	return out, err
}

// Run fetches one evaluation run.
func (c *Client) Run(ctx context.Context, runID string) (orchestrator.RunResult, error) {
	var out orchestrator.RunResult
	err := c.do(ctx, http.MethodGet, "/evaluations/"+url.PathEscape(runID), nil, nil, &out)
	return out, err
}

// Runs lists recent evaluation runs.
func (c *Client) Runs(ctx context.Context, limit int) ([]orchestrator.RunResult, error) {
	var out struct {
		Runs []orchestrator.RunResult `json:"runs"`
	}
	err := c.do(ctx, http.MethodGet, "/evaluations?limit="+strconv.Itoa(limit), nil, nil, &out)
	return out.Runs, err
}

// Stats fetches service statistics.
func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	var out service.Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out)
	return out, err
}

// WaitRun polls until the run leaves the running status or ctx ends.
func (c *Client) WaitRun(ctx context.Context, runID string, every time.Duration) (orchestrator.RunResult, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		run, err := c.Run(ctx, runID)
		if err != nil {
			return run, err
		}
		if run.Status != orchestrator.StatusRunning {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return run, fmt.Errorf("waiting for run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.Debug(ctx, "request completed",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
