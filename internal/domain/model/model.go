// Package model contains domain records passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Registry errors.
var (
	ErrInvalidModel   = errors.New("invalid model")
	ErrDuplicateModel = errors.New("duplicate model")
)

// Provider names the upstream that serves a model.
type Provider string

// Known providers.
const (
	ProviderPortkey   Provider = "portkey"
	ProviderAnthropic Provider = "anthropic"
)

// Model is a routing target with its pricing.
type Model struct {
	ID              string   `json:"id" koanf:"id" yaml:"id"`
	Provider        Provider `json:"provider" koanf:"provider" yaml:"provider"`
	UpstreamID      string   `json:"upstream_id" koanf:"upstream_id" yaml:"upstream_id"`
	DisplayName     string   `json:"display_name" koanf:"display_name" yaml:"display_name"`
	InputCostPer1K  float64  `json:"input_cost_per_1k" koanf:"input_cost_per_1k" yaml:"input_cost_per_1k"`
	OutputCostPer1K float64  `json:"output_cost_per_1k" koanf:"output_cost_per_1k" yaml:"output_cost_per_1k"`
}

// Cost estimates the USD cost of a call from its token usage.
func (m Model) Cost(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)/1000*m.InputCostPer1K + float64(tokensOut)/1000*m.OutputCostPer1K
}

// Upstream returns the identifier sent to the provider.
func (m Model) Upstream() string {
	if m.UpstreamID != "" {
		return m.UpstreamID
	}
	return m.ID
}

// Registry is an ordered, ID-unique set of models. It is immutable after construction.
type Registry struct {
	models []Model
	byID   map[string]int
}

// NewRegistry validates models and builds a registry in the given order.
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: make([]Model, 0, len(models)), byID: make(map[string]int, len(models))}
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidModel)
		}
		if m.InputCostPer1K < 0 || m.OutputCostPer1K < 0 {
			return nil, fmt.Errorf("%w: %s has negative pricing", ErrInvalidModel, m.ID)
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, m.ID)
		}
		if m.Provider == "" {
			m.Provider = ProviderPortkey
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}
	return r, nil
}

// Lookup returns the model registered under id.
func (r *Registry) Lookup(id string) (Model, bool) {
	if r == nil {
		return Model{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Models returns a copy of the registered models in order.
func (r *Registry) Models() []Model {
	if r == nil {
		return nil
	}
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

// IDs returns registered model IDs in order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.models))
	for i, m := range r.models {
		out[i] = m.ID
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.models)
}
