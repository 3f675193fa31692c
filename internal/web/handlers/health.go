package handlers

import (
	"net/http"

	"github.com/kozaktomas/facial-recognition/internal/database"
	"github.com/kozaktomas/facial-recognition/internal/metrics"
	"github.com/rs/zerolog"
)

const msgStorageUnavailable = "storage unavailable"

// HealthHandler reports whether the template store is reachable.
type HealthHandler struct {
	store    database.Store
	strategy string
	metrics  *metrics.Metrics
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(store database.Store, strategyName string, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{store: store, strategy: strategyName, metrics: m}
}

// Check handles GET /api/v1/health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Ping(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("health check: store unreachable")
		respondError(w, http.StatusServiceUnavailable, msgStorageUnavailable)
		return
	}

	count, err := h.store.CountTemplates(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("health check: count templates")
		respondError(w, http.StatusServiceUnavailable, msgStorageUnavailable)
		return
	}
	if h.metrics != nil {
		h.metrics.Templates.Set(float64(count))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"strategy":  h.strategy,
		"templates": count,
	})
}
