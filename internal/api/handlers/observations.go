package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/upwatch/upwatch/internal/api/common"
	"github.com/upwatch/upwatch/internal/store"
)

const defaultObservationLimit = 100

// ObservationHandler serves read-only observation and uptime queries.
type ObservationHandler struct {
	store *store.Store
}

// NewObservationHandler builds an ObservationHandler.
func NewObservationHandler(st *store.Store) *ObservationHandler {
	return &ObservationHandler{store: st}
}

// List handles GET /api/v1/monitors/{id}/observations?limit=.
func (h *ObservationHandler) List(w http.ResponseWriter, r *http.Request) {
	monitorID, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	limit := defaultObservationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	observations, err := h.store.ListRecentObservations(r.Context(), monitorID, limit)
	if common.HandleDBError(w, r, err, "observations") {
		return
	}
	common.SendListResponse(w, observations, len(observations))
}

// Uptime handles GET /api/v1/monitors/{id}/uptime?window=24h.
func (h *ObservationHandler) Uptime(w http.ResponseWriter, r *http.Request) {
	monitorID, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			window = d
		}
	}

	uptime, err := h.store.GetUptimeWindow(r.Context(), monitorID, time.Now().Add(-window))
	if common.HandleDBError(w, r, err, "monitor") {
		return
	}
	common.SendJSON(w, http.StatusOK, uptime)
}
