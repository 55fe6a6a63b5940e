package http

import (
	"context"
	"net/http"
	"time"

	"rigrent-backend/internal/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler serves health and metrics for both processes
type OpsHandler struct {
	store    Pinger
	gatherer prometheus.Gatherer
}

// NewOpsHandler creates a new ops handler. store may be nil when the process
// has no external storage to check.
func NewOpsHandler(store Pinger, gatherer prometheus.Gatherer) *OpsHandler {
	return &OpsHandler{
		store:    store,
		gatherer: gatherer,
	}
}

// HandleHealth reports 200 when storage answers a ping, 503 otherwise
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, map[string]string{"status": "ok"}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			logger.Warn("Health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}
		}
	}

	writeJSON(w, status, body)
}

// RegisterOpsRoutes registers the health and metrics endpoints
func RegisterOpsRoutes(router *mux.Router, h *OpsHandler) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
