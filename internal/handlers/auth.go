package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/BradenHooton/nexus/internal/services"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
	cookies auth.CookieConfig
}

func NewAuthHandler(service AuthServiceInterface, cookies auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	Success bool               `json:"success"`
	Token   string             `json:"token"`
	User    models.UserSummary `json:"user"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// SuccessResponse is the body of endpoints that only report success
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, pkghttp.ExtractClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
			return
		}
		pkghttp.WriteInternalError(w)
		return
	}

	auth.SetSessionCookie(w, result.Token, result.ExpiresAt, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User.Summary(),
	})
}

// Logout handles POST /api/auth/logout. Calling it without a live session
// still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionToken(r, h.cookies.Name)

	if err := h.service.Logout(r.Context(), token); err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user.Sanitized())
}

// Ping handles POST /api/auth/ping. The guard has already refreshed the session.
func (h *AuthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, "New password must be between 8 and 72 characters")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
