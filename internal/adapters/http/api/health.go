package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/bhaveshbillionaier19/portkeyHAckathon/internal/app"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() service.Stats
}

// StatusHandler serves /healthz and /stats.
type StatusHandler struct {
	stats   StatsProvider
	metrics http.Handler
}

// NewStatusHandler creates a status handler over the metrics registry.
func NewStatusHandler(stats StatsProvider) *StatusHandler {
	return &StatusHandler{
		stats:   stats,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth serves the Prometheus registry.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleStats handles GET /stats requests.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}
