package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/BradenHooton/nexus/internal/services"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext places an authenticated user on the request, as the guard would
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), user))
}

// TestUser returns a regular account for handler tests
func TestUser(id, email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$12$not-a-real-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedCode, resp.Code, "Error code mismatch")
	assert.NotEmpty(t, resp.Error, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	LogoutFunc         func(ctx context.Context, token string) error
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	RevokeUserFunc func(ctx context.Context, actorID, targetID string, disable bool) (bool, int64, error)
	EnableUserFunc func(ctx context.Context, actorID, targetID string) error
}

func (m *MockAdminService) RevokeUser(ctx context.Context, actorID, targetID string, disable bool) (bool, int64, error) {
	if m.RevokeUserFunc == nil {
		return disable, 0, nil
	}
	return m.RevokeUserFunc(ctx, actorID, targetID, disable)
}

func (m *MockAdminService) EnableUser(ctx context.Context, actorID, targetID string) error {
	if m.EnableUserFunc == nil {
		return nil
	}
	return m.EnableUserFunc(ctx, actorID, targetID)
}

// MockPasswordResetter implements PasswordResetter for testing
type MockPasswordResetter struct {
	ResetPasswordFunc func(ctx context.Context, email, newPassword string) (int64, error)
}

func (m *MockPasswordResetter) ResetPassword(ctx context.Context, email, newPassword string) (int64, error) {
	if m.ResetPasswordFunc == nil {
		return 0, models.ErrNotFound
	}
	return m.ResetPasswordFunc(ctx, email, newPassword)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
