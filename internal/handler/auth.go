package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"pazzo-admin/internal/service"
	"pazzo-admin/pkg/apierror"
	"pazzo-admin/pkg/response"
)

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	admins *service.AdminService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(admins *service.AdminService) *AuthHandler {
	return &AuthHandler{admins: admins}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("Invalid request body"))
		return
	}

	token, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Raw(w, http.StatusOK, LoginResponse{Token: token, Message: "Login successful"})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("Authorization header required"))
		return
	}
	if err := h.admins.Logout(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("Failed to revoke token"))
		return
	}
	response.Message(w, http.StatusOK, "Logged out")
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
