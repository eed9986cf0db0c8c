package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
)

// IdempotencyHeader deduplicates evaluation triggers.
const IdempotencyHeader = "Idempotency-Key"

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// TriggerResponse is returned by POST /evaluations.
type TriggerResponse struct {
	RunID    string `json:"run_id"`
	Existing bool   `json:"existing"`
}

// EvaluationsHandler triggers and reports evaluation sweeps.
type EvaluationsHandler struct {
	deps EvaluationDependencies
	responder
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies, r responder) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps, responder: r}
}

// HandleEvaluations handles POST /evaluations and GET /evaluations[?limit=].
func (h *EvaluationsHandler) HandleEvaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.trigger(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EvaluationsHandler) trigger(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluations.trigger"
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	runID, existing, err := h.deps.TriggerRun(r.Context(), key)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/evaluations/"+runID)
	writeJSON(w, http.StatusAccepted, TriggerResponse{RunID: runID, Existing: existing})
}

func (h *EvaluationsHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluations.list"
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(r.Context(), w, NewKind(op, ErrBadRequest))
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := h.deps.Runs(r.Context(), limit)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	if runs == nil {
		runs = []orchestrator.RunResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// HandleGetEvaluation handles GET /evaluations/{id} requests.
func (h *EvaluationsHandler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluations.get"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/evaluations/"), "/")
	if id == "" || strings.Contains(id, "/") {
		h.fail(r.Context(), w, NewKind(op, ErrNotFound))
		return
	}
	run, err := h.deps.GetRun(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
