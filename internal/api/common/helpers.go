// Package common holds the Admin API's shared HTTP response helpers,
// adapted from the teacher's internal/api/common/helpers.go to handle
// pgx error types instead of dbgen's.
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/upwatch/upwatch/internal/api/middleware"
	"github.com/upwatch/upwatch/internal/store"
)

// SendJSON writes data as a JSON response with the given status code.
func SendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// SendError writes the standard error envelope.
func SendError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	requestID, _ := r.Context().Value(middleware.RequestIDKey).(string)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(middleware.ErrorResponse{
		Error: middleware.ErrorDetail{Code: code, Message: message, Details: details, RequestID: requestID},
	})
}

// ParseIDParam extracts and validates an int64 ID URL parameter.
func ParseIDParam(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		SendError(w, r, http.StatusBadRequest, "MISSING_ID", "missing id parameter", nil)
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		SendError(w, r, http.StatusBadRequest, "INVALID_ID", "invalid id format", err.Error())
		return 0, false
	}
	return id, true
}

// DecodeJSON decodes a request body into T, sending a standard error on failure.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var input T
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		SendError(w, r, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", err.Error())
		return input, false
	}
	return input, true
}

// HandleDBError sends the appropriate error response for a store error,
// returning true if it handled (i.e. err was non-nil).
func HandleDBError(w http.ResponseWriter, r *http.Request, err error, entityName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, store.ErrNotFound) {
		SendError(w, r, http.StatusNotFound, "NOT_FOUND", entityName+" not found", nil)
		return true
	}
	if errors.Is(err, store.ErrIncidentAlreadyOpen) {
		SendError(w, r, http.StatusConflict, "CONFLICT", "monitor already has an open incident", nil)
		return true
	}
	SendError(w, r, http.StatusInternalServerError, "DB_ERROR", "database error", err.Error())
	return true
}

// SendListResponse wraps a slice with a total count.
func SendListResponse(w http.ResponseWriter, data interface{}, total int) {
	SendJSON(w, http.StatusOK, map[string]interface{}{"data": data, "total": total})
}
