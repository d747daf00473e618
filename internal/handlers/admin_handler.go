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

// AdminServiceInterface is the subset of AdminService the handler needs.
type AdminServiceInterface interface {
	RevokeUser(ctx context.Context, actorID, targetID string, disable bool) (bool, int64, error)
	EnableUser(ctx context.Context, actorID, targetID string) error
}

// AdminHandler serves the super-admin account endpoints.
type AdminHandler struct {
	service AdminServiceInterface
}

func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// RevokeUserRequest is the body of POST /api/admin/users/revoke. Disable
// defaults to true when omitted.
type RevokeUserRequest struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	Disable *bool  `json:"disable"`
}

// EnableUserRequest is the body of POST /api/admin/users/enable
type EnableUserRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// RevokeUserResponse reports what the revocation did
type RevokeUserResponse struct {
	Success         bool  `json:"success"`
	Disabled        bool  `json:"disabled"`
	RevokedSessions int64 `json:"revoked_sessions"`
}

// RevokeUser handles POST /api/admin/users/revoke
func (h *AdminHandler) RevokeUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RevokeUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	disable := true
	if req.Disable != nil {
		disable = *req.Disable
	}

	disabled, revoked, err := h.service.RevokeUser(r.Context(), actor.ID, req.UserID, disable)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RevokeUserResponse{
		Success:         true,
		Disabled:        disabled,
		RevokedSessions: revoked,
	})
}

// EnableUser handles POST /api/admin/users/enable
func (h *AdminHandler) EnableUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetUserFromContext(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req EnableUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.EnableUser(r.Context(), actor.ID, req.UserID); err != nil {
		writeAdminError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSelfRevocation):
		pkghttp.WriteBadRequest(w, "You cannot revoke your own access")
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, "userId is required")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		pkghttp.WriteInternalError(w)
	}
}
