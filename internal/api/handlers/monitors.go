// Package handlers implements the Admin API's HTTP handlers, adapted
// from the teacher's monitor_handler.go/auth_handler.go/health_handler.go
// to int64-keyed monitors and upwatch's own store/validator.
package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/upwatch/upwatch/internal/api/common"
	"github.com/upwatch/upwatch/internal/store"
)

var validate = validator.New()

// MonitorHandler serves CRUD over monitors. It never writes
// observations or incidents (spec.md §1's write-isolation invariant).
type MonitorHandler struct {
	store *store.Store
}

// NewMonitorHandler builds a MonitorHandler.
func NewMonitorHandler(st *store.Store) *MonitorHandler {
	return &MonitorHandler{store: st}
}

type monitorInput struct {
	Name             string  `json:"name" validate:"required"`
	URL              string  `json:"url" validate:"required,url"`
	Method           string  `json:"method"`
	IntervalSec      int32   `json:"interval_sec"`
	TimeoutMS        int32   `json:"timeout_ms"`
	ExpectedStatuses []int32 `json:"expected_statuses"`
	IsEnabled        *bool   `json:"is_enabled"`
}

// List handles GET /api/v1/monitors.
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	monitors, err := h.store.ListMonitors(r.Context())
	if common.HandleDBError(w, r, err, "monitors") {
		return
	}
	common.SendListResponse(w, monitors, len(monitors))
}

// Create handles POST /api/v1/monitors.
func (h *MonitorHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := common.DecodeJSON[monitorInput](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(input); err != nil {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	isEnabled := true
	if input.IsEnabled != nil {
		isEnabled = *input.IsEnabled
	}

	m := &store.Monitor{
		Name:             input.Name,
		URL:              input.URL,
		Method:           input.Method,
		IntervalSec:      input.IntervalSec,
		TimeoutMS:        input.TimeoutMS,
		ExpectedStatuses: input.ExpectedStatuses,
		IsEnabled:        isEnabled,
	}

	if err := h.store.CreateMonitor(r.Context(), m); common.HandleDBError(w, r, err, "monitor") {
		return
	}

	common.SendJSON(w, http.StatusCreated, m)
}

// Get handles GET /api/v1/monitors/{id}.
func (h *MonitorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	m, err := h.store.GetMonitor(r.Context(), id)
	if common.HandleDBError(w, r, err, "monitor") {
		return
	}
	common.SendJSON(w, http.StatusOK, m)
}

// Update handles PUT /api/v1/monitors/{id}.
func (h *MonitorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	input, ok := common.DecodeJSON[monitorInput](w, r)
	if !ok {
		return
	}
	if err := validate.Struct(input); err != nil {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	isEnabled := true
	if input.IsEnabled != nil {
		isEnabled = *input.IsEnabled
	}

	m := &store.Monitor{
		ID:               id,
		Name:             input.Name,
		URL:              input.URL,
		Method:           input.Method,
		IntervalSec:      input.IntervalSec,
		TimeoutMS:        input.TimeoutMS,
		ExpectedStatuses: input.ExpectedStatuses,
		IsEnabled:        isEnabled,
	}

	if err := h.store.UpdateMonitor(r.Context(), m); common.HandleDBError(w, r, err, "monitor") {
		return
	}
	common.SendJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /api/v1/monitors/{id}.
func (h *MonitorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.ParseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteMonitor(r.Context(), id); common.HandleDBError(w, r, err, "monitor") {
		return
	}
	common.SendJSON(w, http.StatusNoContent, nil)
}
