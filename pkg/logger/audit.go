package logger

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Audit event types
const (
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventLogout          = "logout"
	EventSessionsRevoked = "sessions_revoked"
	EventUserEnabled     = "user_enabled"
	EventPasswordChange  = "password_change"
	EventDevReset        = "dev_password_reset"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	ActorID       string
	TargetID      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security audit events as structured log records
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Record logs the event at INFO on success and WARN on failure.
func (al *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType(event.EventType)),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.TargetID != "" {
		attrs = append(attrs, slog.String("target_id", event.TargetID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	keys := make([]string, 0, len(event.Metadata))
	for key := range event.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, slog.String(key, event.Metadata[key]))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

func auditType(eventType string) string {
	switch eventType {
	case EventLoginSuccess, EventLoginFailed, EventLogout:
		return "auth"
	case EventPasswordChange, EventDevReset:
		return "password"
	default:
		return "account"
	}
}
