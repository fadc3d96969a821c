package handlers

import (
	"net/http"
	"strconv"

	"github.com/upwatch/upwatch/internal/api/common"
	"github.com/upwatch/upwatch/internal/store"
)

const defaultIncidentLimit = 50

// IncidentHandler serves read-only incident history.
type IncidentHandler struct {
	store *store.Store
}

// NewIncidentHandler builds an IncidentHandler.
func NewIncidentHandler(st *store.Store) *IncidentHandler {
	return &IncidentHandler{store: st}
}

// List handles GET /api/v1/monitors/{id}/incidents.
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	monitorID, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	limit := defaultIncidentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	incidents, err := h.store.ListIncidentsByMonitor(r.Context(), monitorID, limit)
	if common.HandleDBError(w, r, err, "incidents") {
		return
	}
	common.SendListResponse(w, incidents, len(incidents))
}
