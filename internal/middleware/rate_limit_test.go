package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/models"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/revoke", nil)
	if userID != "" {
		req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: userID, IsSuperAdmin: true}))
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminActionLimit_EnforcesPerUserLimit(t *testing.T) {
	handler := AdminActionLimit(3)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, adminRequest("admin-1"))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("admin-1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "rate_limit_exceeded", body.Code)
}

func TestAdminActionLimit_UsersAreIndependent(t *testing.T) {
	handler := AdminActionLimit(1)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("admin-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("admin-2"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, adminRequest("admin-1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdminActionLimit_FallsBackToIP(t *testing.T) {
	handler := AdminActionLimit(1)(okHandler())

	req := adminRequest("")
	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = adminRequest("")
	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
