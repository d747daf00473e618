package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
	Dev       DevConfig
	Bootstrap BootstrapConfig
}

type DatabaseConfig struct {
	URL               string // Overrides the individual fields when set
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	RunMigrations     bool
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	OutboundTimeout time.Duration
}

type SessionConfig struct {
	TTL             time.Duration
	CookieName      string
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  string
	Retention       time.Duration // 0 disables compaction of dead sessions
	CompactInterval time.Duration
	BcryptCost      int
	FailureDelayMs  int
	FailureJitterMs int
	DelayOnSuccess  bool // pad successful logins to the same floor as failures
}

// PolicyConfig is one fixed-window rate limit.
type PolicyConfig struct {
	Limit  int
	Window time.Duration
}

type RateLimitConfig struct {
	Store                 string // "memory" or "redis"
	RedisURL              string
	API                   PolicyConfig
	Auth                  PolicyConfig
	Public                PolicyConfig
	AuthSkipSuccessful    bool
	SweepInterval         time.Duration
	AdminActionsPerMinute int
}

type NotifyConfig struct {
	FromAddress string // Empty disables outbound notifications
	AWSRegion   string
}

type DevConfig struct {
	ResetSecret   string
	ResetTokenTTL time.Duration
}

type BootstrapConfig struct {
	SuperAdminEmail    string
	SuperAdminPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := NormalizeEnv(getEnv("ENV", EnvDevelopment))
	production := !IsNonProduction(env)

	defaultTTL := 8 * time.Hour
	if production {
		defaultTTL = 24 * time.Hour
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "nexus"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			RunMigrations:     getEnvAsBool("RUN_MIGRATIONS", true),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:  parseAllowedOrigins(env),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			OutboundTimeout: getEnvAsDuration("OUTBOUND_TIMEOUT", 5*time.Second),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", defaultTTL),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "nexus_session"),
			CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", production),
			CookieSameSite:  strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
			Retention:       getEnvAsDuration("SESSION_RETENTION", 0),
			CompactInterval: getEnvAsDuration("SESSION_COMPACT_INTERVAL", 24*time.Hour),
			BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),
			FailureDelayMs:  getEnvAsInt("LOGIN_FAILURE_DELAY_MS", 200),
			FailureJitterMs: getEnvAsInt("LOGIN_FAILURE_JITTER_MS", 100),
			DelayOnSuccess:  getEnvAsBool("LOGIN_DELAY_ON_SUCCESS", false),
		},
		RateLimit: RateLimitConfig{
			Store:    strings.ToLower(getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory)),
			RedisURL: getEnv("REDIS_URL", ""),
			API: PolicyConfig{
				Limit:  getEnvAsInt("RATE_LIMIT_API_LIMIT", 50),
				Window: getEnvAsDuration("RATE_LIMIT_API_WINDOW", 60*time.Second),
			},
			Auth: PolicyConfig{
				Limit:  getEnvAsInt("RATE_LIMIT_AUTH_LIMIT", 10),
				Window: getEnvAsDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
			},
			Public: PolicyConfig{
				Limit:  getEnvAsInt("RATE_LIMIT_PUBLIC_LIMIT", 200),
				Window: getEnvAsDuration("RATE_LIMIT_PUBLIC_WINDOW", 60*time.Second),
			},
			AuthSkipSuccessful:    getEnvAsBool("RATE_LIMIT_AUTH_SKIP_SUCCESS", false),
			SweepInterval:         getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
			AdminActionsPerMinute: getEnvAsInt("ADMIN_ACTIONS_PER_MINUTE", 30),
		},
		Notify: NotifyConfig{
			FromAddress: getEnv("NOTIFY_FROM_ADDRESS", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
		Dev: DevConfig{
			ResetSecret:   getEnv("DEV_RESET_SECRET", ""),
			ResetTokenTTL: getEnvAsDuration("DEV_RESET_TOKEN_TTL", 15*time.Minute),
		},
		Bootstrap: BootstrapConfig{
			SuperAdminEmail:    getEnv("SUPERADMIN_EMAIL", ""),
			SuperAdminPassword: getEnv("SUPERADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD or DATABASE_URL is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	switch c.Session.CookieSameSite {
	case "strict", "lax":
	case "none":
		if !c.Session.CookieSecure {
			return fmt.Errorf("COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
		}
	default:
		return fmt.Errorf("COOKIE_SAMESITE must be one of strict, lax, none")
	}

	for name, p := range map[string]PolicyConfig{"API": c.RateLimit.API, "AUTH": c.RateLimit.Auth, "PUBLIC": c.RateLimit.Public} {
		if p.Limit <= 0 || p.Window <= 0 {
			return fmt.Errorf("RATE_LIMIT_%s_LIMIT and RATE_LIMIT_%s_WINDOW must be positive", name, name)
		}
	}

	if c.RateLimit.SweepInterval <= 0 || c.Session.CompactInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_INTERVAL and SESSION_COMPACT_INTERVAL must be positive")
	}
	if c.Server.RequestTimeout <= 0 || c.Server.OutboundTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and OUTBOUND_TIMEOUT must be positive")
	}

	switch c.RateLimit.Store {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be memory or redis")
	}

	// The development reset route only exists in explicitly non-production
	// environments.
	if !IsNonProduction(c.Server.Env) {
		c.Dev.ResetSecret = ""
	} else if c.Dev.ResetSecret != "" {
		if err := validateResetSecret(c.Dev.ResetSecret); err != nil {
			return err
		}
	}

	if (c.Bootstrap.SuperAdminEmail == "") != (c.Bootstrap.SuperAdminPassword == "") {
		return fmt.Errorf("SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD must be set together")
	}

	return nil
}

// validateResetSecret enforces minimum strength for the reset signing secret
func validateResetSecret(secret string) error {
	if len(secret) < 32 {
		return fmt.Errorf("DEV_RESET_SECRET must be at least 32 characters (got %d)", len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if strings.ReplaceAll(secretLower, weak, "") == "" {
			return fmt.Errorf("DEV_RESET_SECRET cannot be a repeated weak value")
		}
	}

	return nil
}

// DevResetEnabled reports whether the development password reset route is mounted.
func (c *Config) DevResetEnabled() bool {
	return IsNonProduction(c.Server.Env) && c.Dev.ResetSecret != ""
}

// NormalizeEnv lowercases and trims an ENV value.
func NormalizeEnv(env string) string {
	return strings.ToLower(strings.TrimSpace(env))
}

// IsNonProduction reports whether env is one of the environments that are
// explicitly not production. Any other value, including typos of
// "production", gets production behaviour.
func IsNonProduction(env string) bool {
	switch NormalizeEnv(env) {
	case EnvDevelopment, EnvTest:
		return true
	default:
		return false
	}
}

func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if originsStr := getEnv("ALLOWED_ORIGINS", ""); originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	if !IsNonProduction(env) {
		return []string{}
	}

	return []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
}
