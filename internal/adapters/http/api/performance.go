package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/ranking"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

var (
	errEmptyPrompt     = errors.New("prompt must not be empty")
	errMissingCategory = errors.New("category query parameter is required")
	errNoTable         = errors.New("no performance table has been published")
)

// BestModelResponse is returned by GET /best-model.
type BestModelResponse struct {
	Category types.Category      `json:"category"`
	Model    string              `json:"model"`
	Fallback string              `json:"fallback,omitempty"`
	Source   string              `json:"source"`
	Stat     *model.CategoryStat `json:"stat,omitempty"`
	Version  uint64              `json:"version"`
}

// RecommendationsResponse is returned by GET /recommendations.
type RecommendationsResponse struct {
	Version uint64 `json:"version"`
	RunID   string `json:"run_id"`
	ranking.Report
}

// PerformanceHandler serves the published performance table.
type PerformanceHandler struct {
	deps PerformanceDependencies
	responder
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps PerformanceDependencies, r responder) *PerformanceHandler {
	return &PerformanceHandler{deps: deps, responder: r}
}

// HandlePerformance handles GET /performance[?category=] requests.
func (h *PerformanceHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	const op = "api.performance"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	table := h.deps.Table()
	if table == nil {
		h.fail(r.Context(), w, WrapKind(op, ErrNotFound, errNoTable))
		return
	}
	raw := r.URL.Query().Get("category")
	if raw == "" {
		writeJSON(w, http.StatusOK, table)
		return
	}
	c, err := types.ParseCategory(raw)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	ranking := table.Ranking(c)
	if ranking == nil {
		ranking = []model.CategoryStat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  table.Version(),
		"run_id":   table.RunID(),
		"category": c,
		"ranking":  ranking,
	})
}

// HandleBestModel handles GET /best-model?category= requests.
func (h *PerformanceHandler) HandleBestModel(w http.ResponseWriter, r *http.Request) {
	const op = "api.best_model"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := r.URL.Query().Get("category")
	if raw == "" {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, errMissingCategory))
		return
	}
	c, err := types.ParseCategory(raw)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	plan, err := h.deps.Plan(c)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	resp := BestModelResponse{
		Category: c,
		Model:    plan.Primary,
		Fallback: plan.Fallback,
		Source:   plan.Source,
	}
	if table := h.deps.Table(); table != nil {
		resp.Version = table.Version()
	}
	if stat, err := h.deps.Best(c); err == nil {
		resp.Stat = &stat
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRecommendations handles GET /recommendations?category=[&budget=][&floor=] requests.
func (h *PerformanceHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommendations"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	raw := q.Get("category")
	if raw == "" {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, errMissingCategory))
		return
	}
	c, err := types.ParseCategory(raw)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	var opts []ranking.RecommendOption
	for _, p := range []struct {
		name string
		opt  func(float64) ranking.RecommendOption
	}{
		{"budget", ranking.WithBudget},
		{"floor", ranking.WithQualityFloor},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a non-negative number, got %q", p.name, v)))
			return
		}
		opts = append(opts, p.opt(f))
	}

	table := h.deps.Table()
	if table == nil {
		h.fail(r.Context(), w, WrapKind(op, ErrNotFound, errNoTable))
		return
	}
	report, err := ranking.Recommend(c, table.Ranking(c), opts...)
	if err != nil {
		h.fail(r.Context(), w, WrapKind(op, ErrNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Version: table.Version(), RunID: table.RunID(), Report: report})
}
