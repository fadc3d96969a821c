package handlers

import "net/http"

// Health handles GET /health, an unauthenticated liveness probe for the
// Admin API itself (SPEC_FULL.md §4.5).
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
