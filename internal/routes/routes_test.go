package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/handlers"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/BradenHooton/nexus/internal/ratelimit"
	"github.com/BradenHooton/nexus/internal/routes"
	"github.com/BradenHooton/nexus/internal/services"
	pkgauth "github.com/BradenHooton/nexus/pkg/auth"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	userPassword  = "correct-horse-battery"
	adminPassword = "admin-password-123"
)

// world is an in-memory account and session store behind the real services.
type world struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[string]*models.Session
	mutated  int
}

func (w *world) byEmail(email string) *models.User {
	for _, u := range w.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (w *world) userRepo() *services.MockUserRepository {
	return &services.MockUserRepository{
		GetByIDFunc: func(_ context.Context, id string) (*models.User, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			u, ok := w.users[id]
			if !ok {
				return nil, models.ErrNotFound
			}
			copied := *u
			return &copied, nil
		},
		GetByEmailFunc: func(_ context.Context, email string) (*models.User, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			u := w.byEmail(email)
			if u == nil {
				return nil, models.ErrNotFound
			}
			copied := *u
			return &copied, nil
		},
		RevokeAccessFunc: func(_ context.Context, id string, disable bool) (int64, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			w.mutated++
			var n int64
			for _, s := range w.sessions {
				if s.UserID == id && s.IsActive {
					s.IsActive = false
					n++
				}
			}
			if disable {
				w.users[id].IsDisabled = true
			}
			return n, nil
		},
	}
}

func (w *world) sessionRepo() *services.MockSessionRepository {
	return &services.MockSessionRepository{
		CreateFunc: func(_ context.Context, s *models.Session) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			copied := *s
			w.sessions[s.TokenHash] = &copied
			return nil
		},
		FindUserBySessionFunc: func(_ context.Context, hash string, now time.Time) (*models.User, time.Time, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			s, ok := w.sessions[hash]
			if !ok || !s.IsActive || !now.Before(s.ExpiresAt) {
				return nil, time.Time{}, models.ErrNotFound
			}
			u := *w.users[s.UserID]
			return &u, s.ExpiresAt, nil
		},
		ExtendFunc: func(_ context.Context, hash string, expiresAt, now time.Time) (time.Time, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			s, ok := w.sessions[hash]
			if !ok || !s.IsActive || !now.Before(s.ExpiresAt) {
				return time.Time{}, models.ErrNotFound
			}
			if expiresAt.After(s.ExpiresAt) {
				s.ExpiresAt = expiresAt
			}
			return s.ExpiresAt, nil
		},
		DeactivateFunc: func(_ context.Context, hash string) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			if s, ok := w.sessions[hash]; ok {
				s.IsActive = false
			}
			return nil
		},
	}
}

func (w *world) activeSessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, s := range w.sessions {
		if s.IsActive {
			n++
		}
	}
	return n
}

func newTestRouter(t *testing.T) (http.Handler, *world) {
	t.Helper()

	hasher := pkgauth.NewHasher(bcrypt.MinCost)
	hash := func(pw string) string {
		h, err := hasher.Hash(pw)
		require.NoError(t, err)
		return h
	}

	w := &world{
		users: map[string]*models.User{
			"11111111-1111-4111-8111-111111111111": {
				ID: "11111111-1111-4111-8111-111111111111", Email: "user@example.com", PasswordHash: hash(userPassword),
			},
			"22222222-2222-4222-8222-222222222222": {
				ID: "22222222-2222-4222-8222-222222222222", Email: "admin@example.com", PasswordHash: hash(adminPassword), IsSuperAdmin: true,
			},
		},
		sessions: map[string]*models.Session{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)

	authService, err := services.NewAuthService(w.userRepo(), w.sessionRepo(), hasher, services.NoopNotifier{}, &services.MockTimingDelay{}, 24*time.Hour, logger, audit)
	require.NoError(t, err)
	adminService := services.NewAdminService(w.userRepo(), hasher, services.NoopNotifier{}, logger, audit)

	cookies := auth.CookieConfig{Name: "nexus_session", SameSite: "lax"}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), logger)

	router := chi.NewRouter()
	routes.RegisterRoutes(router, routes.Dependencies{
		Guard:                 auth.NewGuard(limiter, authService, cookies, logger),
		Policies:              ratelimit.DefaultPolicies(),
		Env:                   "development",
		AuthHandler:           handlers.NewAuthHandler(authService, cookies),
		AdminHandler:          handlers.NewAdminHandler(adminService),
		HealthHandler:         handlers.NewHealthHandler(&handlers.MockHealthChecker{}),
		AdminActionsPerMinute: 30,
	})
	return router, w
}

func do(router http.Handler, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler, email, password string) (*http.Cookie, handlers.LoginResponse) {
	t.Helper()
	rec := do(router, "POST", "/api/auth/login", handlers.LoginRequest{Email: email, Password: password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, c := range rec.Result().Cookies() {
		if c.Name == "nexus_session" {
			return c, resp
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil, resp
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)

	cookie, loginResp := login(t, router, "user@example.com", userPassword)
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, cookie.Value, loginResp.Token)

	rec := do(router, "GET", "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, loginResp.User.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(router, "POST", "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, "GET", "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 1; i <= 10; i++ {
		rec := do(router, "POST", "/api/auth/login", handlers.LoginRequest{Email: "user@example.com", Password: "wrong-password"}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(router, "POST", "/api/auth/login", handlers.LoginRequest{Email: "user@example.com", Password: userPassword}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestAdminRevoke_RejectsNonAdmin(t *testing.T) {
	router, w := newTestRouter(t)

	cookie, _ := login(t, router, "user@example.com", userPassword)
	_, _ = login(t, router, "admin@example.com", adminPassword)
	before := w.activeSessions()

	rec := do(router, "POST", "/api/admin/users/revoke",
		map[string]string{"userId": "22222222-2222-4222-8222-222222222222"}, cookie)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, before, w.activeSessions())
	assert.Zero(t, w.mutated)
}

func TestAdminRevoke_SuperAdmin(t *testing.T) {
	router, w := newTestRouter(t)

	userCookie, _ := login(t, router, "user@example.com", userPassword)
	adminCookie, _ := login(t, router, "admin@example.com", adminPassword)

	rec := do(router, "POST", "/api/admin/users/revoke",
		map[string]string{"userId": "11111111-1111-4111-8111-111111111111"}, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.RevokeUserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Disabled)
	assert.Equal(t, int64(1), resp.RevokedSessions)

	rec = do(router, "GET", "/api/auth/me", nil, userCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, w.activeSessions())
}

func TestProtectedRoute_RequiresSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, "POST", "/api/auth/ping", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, "POST", "/api/auth/ping", nil, &http.Cookie{Name: "nexus_session", Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevResetRoute_AbsentWhenDisabled(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, "POST", "/api/dev/reset-password", map[string]string{"newPassword": "whatever-123"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", rec.Header().Get("X-RateLimit-Limit"))
}
