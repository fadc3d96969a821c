package handlers

import (
	"net/http"

	"github.com/upwatch/upwatch/internal/api/auth"
	"github.com/upwatch/upwatch/internal/api/common"
)

// AuthHandler issues JWTs for the single configured admin user.
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := common.DecodeJSON[auth.LoginRequest](w, r)
	if !ok {
		return
	}

	if req.Username == "" || req.Password == "" {
		common.SendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required", nil)
		return
	}

	resp, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		common.SendError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
		return
	}

	common.SendJSON(w, http.StatusOK, resp)
}
