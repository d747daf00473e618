package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/models"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
)

// PasswordResetter replaces a password and revokes every session of the account.
type PasswordResetter interface {
	ResetPassword(ctx context.Context, email, newPassword string) (int64, error)
}

// ResetTokenVerifier turns a reset grant into the email it was issued for.
type ResetTokenVerifier interface {
	Verify(token string) (string, error)
}

// DevResetHandler serves the development-only password reset. It is only
// mounted outside production.
type DevResetHandler struct {
	service PasswordResetter
	tokens  ResetTokenVerifier
}

func NewDevResetHandler(service PasswordResetter, tokens ResetTokenVerifier) *DevResetHandler {
	return &DevResetHandler{service: service, tokens: tokens}
}

// DevResetRequest is the body of POST /api/dev/reset-password
type DevResetRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// DevResetResponse reports the revoked sessions
type DevResetResponse struct {
	Success         bool  `json:"success"`
	RevokedSessions int64 `json:"revoked_sessions"`
}

// ResetPassword handles POST /api/dev/reset-password
func (h *DevResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	email, err := h.tokens.Verify(auth.BearerToken(r))
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Invalid or expired reset token")
		return
	}

	var req DevResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	revoked, err := h.service.ResetPassword(r.Context(), email, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, "New password must be between 8 and 72 characters")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DevResetResponse{Success: true, RevokedSessions: revoked})
}
