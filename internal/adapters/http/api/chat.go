package api

import (
	"net/http"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/classifier"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
)

// ChatRequest is the body of POST /chat and POST /classify.
type ChatRequest struct {
	Prompt              string          `json:"prompt"`
	ConversationHistory []model.Message `json:"conversation_history,omitempty"`
}

// ClassifyResponse is returned by POST /classify.
type ClassifyResponse struct {
	classifier.Result
	Prompt string `json:"prompt"`
}

// ChatHandler handles routed completions and classification.
type ChatHandler struct {
	deps ChatDependencies
	responder
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(deps ChatDependencies, r responder) *ChatHandler {
	return &ChatHandler{deps: deps, responder: r}
}

// HandleChat handles POST /chat requests.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	const op = "api.chat"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := readPrompt(r)
	if err != nil {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Handle(r.Context(), req.Prompt, req.ConversationHistory)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleClassify handles POST /classify requests.
func (h *ChatHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := readPrompt(r)
	if err != nil {
		h.fail(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Classify(r.Context(), req.Prompt)
	if err != nil {
		h.fail(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Result: res, Prompt: req.Prompt})
}

func readPrompt(r *http.Request) (ChatRequest, error) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return req, errEmptyPrompt
	}
	return req, nil
}
