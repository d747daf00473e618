package routes

import (
	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/handlers"
	"github.com/BradenHooton/nexus/internal/middleware"
	"github.com/BradenHooton/nexus/internal/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Dependencies carries everything the route table mounts.
type Dependencies struct {
	Guard    *auth.Guard
	Policies ratelimit.Policies
	Env      string

	AuthHandler   *handlers.AuthHandler
	AdminHandler  *handlers.AdminHandler
	HealthHandler *handlers.HealthHandler

	// DevResetHandler is nil when the development reset is disabled.
	DevResetHandler *handlers.DevResetHandler

	AdminActionsPerMinute int
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	guard := deps.Guard
	policies := deps.Policies

	router.With(guard.Limit(policies.Public)).Get("/health", deps.HealthHandler.Health)

	router.Route("/api", func(r chi.Router) {
		// Rate limited, no session required
		r.With(guard.Limit(policies.Auth)).Post("/auth/login", deps.AuthHandler.Login)
		r.With(guard.Limit(policies.API)).Post("/auth/logout", deps.AuthHandler.Logout)

		// Protected routes - live session required
		r.Group(func(r chi.Router) {
			r.Use(guard.Protect(policies.API))
			r.Use(middleware.RecordUser)

			r.Get("/auth/me", deps.AuthHandler.Me)
			r.Post("/auth/ping", deps.AuthHandler.Ping)
			r.Post("/auth/change-password", deps.AuthHandler.ChangePassword)

			// Super-admin only
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireSuperAdmin())
				r.Use(middleware.AdminActionLimit(deps.AdminActionsPerMinute))
				r.Post("/admin/users/revoke", deps.AdminHandler.RevokeUser)
				r.Post("/admin/users/enable", deps.AdminHandler.EnableUser)
			})
		})

		if deps.DevResetHandler != nil {
			r.With(
				auth.RequireNonProduction(deps.Env),
				guard.Limit(policies.Auth),
			).Post("/dev/reset-password", deps.DevResetHandler.ResetPassword)
		}
	})
}
