package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/nexus/internal/auth"
	"github.com/BradenHooton/nexus/internal/background"
	"github.com/BradenHooton/nexus/internal/config"
	"github.com/BradenHooton/nexus/internal/database"
	"github.com/BradenHooton/nexus/internal/handlers"
	middlewareCustom "github.com/BradenHooton/nexus/internal/middleware"
	"github.com/BradenHooton/nexus/internal/ratelimit"
	"github.com/BradenHooton/nexus/internal/repositories"
	"github.com/BradenHooton/nexus/internal/routes"
	"github.com/BradenHooton/nexus/internal/services"
	pkgauth "github.com/BradenHooton/nexus/pkg/auth"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	// Rate limit store
	store, closeStore := newRateLimitStore(cfg.RateLimit, logger)
	defer closeStore()
	limiter := ratelimit.NewLimiter(store, logger)
	policies := ratelimit.PoliciesFromConfig(cfg.RateLimit)

	// Initialize security services
	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewHasher(cfg.Session.BcryptCost)
	timingDelay := auth.NewTimingDelay(auth.TimingConfigFrom(cfg.Session))

	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.Notify.FromAddress != "" {
		sesNotifier, err := services.NewSESNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, cfg.Server.OutboundTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	authService, err := services.NewAuthService(userRepo, sessionRepo, hasher, notifier, timingDelay, cfg.Session.TTL, logger, auditLogger)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}
	adminService := services.NewAdminService(userRepo, hasher, notifier, logger, auditLogger)

	// Bootstrap first super-admin if configured
	if cfg.Bootstrap.SuperAdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := adminService.EnsureSuperAdmin(ctx, cfg.Bootstrap.SuperAdminEmail, cfg.Bootstrap.SuperAdminPassword)
		cancel()
		if err != nil {
			logger.Error("failed to ensure super-admin", slog.Any("error", err))
		} else if created {
			logger.Info("super-admin created", slog.String("email", pkglogger.SanitizedEmail(cfg.Bootstrap.SuperAdminEmail)))
		}
	}

	// Initialize handlers
	cookies := auth.CookieConfigFrom(cfg.Session)
	guard := auth.NewGuard(limiter, authService, cookies, logger)

	deps := routes.Dependencies{
		Guard:                 guard,
		Policies:              policies,
		Env:                   cfg.Server.Env,
		AuthHandler:           handlers.NewAuthHandler(authService, cookies),
		AdminHandler:          handlers.NewAdminHandler(adminService),
		HealthHandler:         handlers.NewHealthHandler(db),
		AdminActionsPerMinute: cfg.RateLimit.AdminActionsPerMinute,
	}
	if cfg.DevResetEnabled() {
		resetTokens := auth.NewResetTokenManager(cfg.Dev.ResetSecret, cfg.Dev.ResetTokenTTL)
		deps.DevResetHandler = handlers.NewDevResetHandler(authService, resetTokens)
		logger.Warn("development password reset route enabled")
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middlewareCustom.Recoverer(logger))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// Register routes
	routes.RegisterRoutes(router, deps)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup tasks
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	managers := []*background.CleanupManager{
		background.NewCleanupManager("rate_limit_sweep", background.SweepRateLimits(limiter), logger, cfg.RateLimit.SweepInterval),
	}
	if cfg.Session.Retention > 0 {
		managers = append(managers, background.NewCleanupManager(
			"session_compaction",
			background.CompactSessions(authService, cfg.Session.Retention),
			logger,
			cfg.Session.CompactInterval,
		))
	}
	for _, m := range managers {
		go m.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	for _, m := range managers {
		m.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newRateLimitStore picks the counter backend. A redis store that cannot be
// reached at startup is still used; the limiter fails open until it recovers.
func newRateLimitStore(cfg config.RateLimitConfig, logger *slog.Logger) (ratelimit.Store, func()) {
	if cfg.Store != config.RateLimitStoreRedis {
		logger.Info("rate limit store", slog.String("backend", "memory"))
		return ratelimit.NewMemoryStore(), func() {}
	}

	store, client, err := ratelimit.NewRedisStoreFromURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis url, falling back to memory store", slog.Any("error", err))
		return ratelimit.NewMemoryStore(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", slog.Any("error", err))
	}

	logger.Info("rate limit store", slog.String("backend", "redis"))
	return store, func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
