package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/BradenHooton/nexus/internal/config"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/BradenHooton/nexus/internal/ratelimit"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the authenticated user in context
	UserContextKey contextKey = "user"
)

// SessionAuthenticator validates a session token and slides its expiry.
// Exactly one of user and APIError is non-nil.
type SessionAuthenticator interface {
	ProtectAPIRoute(ctx context.Context, token string) (*models.User, time.Time, *pkghttp.APIError)
}

// Guard is the single gate in front of every API handler: rate limit first,
// then session authentication.
type Guard struct {
	limiter  *ratelimit.Limiter
	sessions SessionAuthenticator
	cookies  CookieConfig
	logger   *slog.Logger
}

func NewGuard(limiter *ratelimit.Limiter, sessions SessionAuthenticator, cookies CookieConfig, logger *slog.Logger) *Guard {
	return &Guard{
		limiter:  limiter,
		sessions: sessions,
		cookies:  cookies,
		logger:   logger,
	}
}

// Limit applies the rate-limit policy only. With SkipSuccessful set,
// responses below 400 are refunded.
func (g *Guard) Limit(policy ratelimit.Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := pkghttp.ExtractClientIP(r)

			if apiErr := g.checkLimit(w, r, clientIP, policy); apiErr != nil {
				apiErr.Write(w)
				return
			}

			if !policy.SkipSuccessful {
				next.ServeHTTP(w, r)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Status 0 means the handler wrote nothing, which net/http sends as 200.
			if ww.Status() < http.StatusBadRequest {
				g.limiter.Refund(r.Context(), clientIP, policy)
			}
		})
	}
}

// Protect rate-limits, authenticates and puts the user in the request context.
func (g *Guard) Protect(policy ratelimit.Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, apiErr := g.Authorize(w, r, policy)
			if apiErr != nil {
				apiErr.Write(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Authorize runs the guard for handlers that are not mounted behind Protect.
// Exactly one of the results is non-nil; the caller writes the error. On
// success the session cookie has been re-issued with the extended expiry.
func (g *Guard) Authorize(w http.ResponseWriter, r *http.Request, policy ratelimit.Policy) (user *models.User, apiErr *pkghttp.APIError) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logPanic(r, rec)
			user, apiErr = nil, pkghttp.NewInternal()
		}
	}()

	if apiErr := g.checkLimit(w, r, pkghttp.ExtractClientIP(r), policy); apiErr != nil {
		return nil, apiErr
	}

	token := SessionToken(r, g.cookies.Name)

	user, expiresAt, apiErr := g.sessions.ProtectAPIRoute(r.Context(), token)
	if apiErr != nil {
		return nil, apiErr
	}

	SetSessionCookie(w, token, expiresAt, g.cookies)
	return user, nil
}

// checkLimit writes the rate-limit headers and returns a 429 when the policy
// is exhausted. A panic in the limiter is treated like a store failure and
// the request is allowed.
func (g *Guard) checkLimit(w http.ResponseWriter, r *http.Request, clientIP string, policy ratelimit.Policy) (apiErr *pkghttp.APIError) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logPanic(r, rec)
			apiErr = nil
		}
	}()

	decision := g.limiter.Check(r.Context(), clientIP, policy)
	decision.WriteHeaders(w)

	if !decision.Allowed {
		g.logger.Warn("rate limit exceeded",
			slog.String("policy", policy.Name),
			slog.String("ip", clientIP),
			slog.String("path", r.URL.Path),
			slog.Int("retry_after", decision.RetryAfter),
		)
		return pkghttp.NewTooManyRequests("Too many requests, please try again later")
	}
	return nil
}

func (g *Guard) logPanic(r *http.Request, rec interface{}) {
	g.logger.Error("panic in route guard",
		slog.String("panic", fmt.Sprint(rec)),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("stack", string(debug.Stack())),
	)
}

// RequireSuperAdmin must run after Protect. It is a separate gate so that
// authentication and authorization stay distinct.
func RequireSuperAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !user.IsSuperAdmin {
				pkghttp.WriteForbidden(w, "Super admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireNonProduction hides the wrapped routes unless env is explicitly a
// development or test environment.
func RequireNonProduction(env string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.IsNonProduction(env) {
				pkghttp.WriteNotFound(w, "Not found")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext returns the user stored by Protect, or nil.
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
