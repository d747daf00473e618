package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/nexus/internal/models"
	pkgauth "github.com/BradenHooton/nexus/pkg/auth"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
	"github.com/google/uuid"
)

// ErrSelfRevocation is returned when an administrator targets their own account.
var ErrSelfRevocation = fmt.Errorf("%w: administrators cannot revoke their own access", models.ErrValidation)

// AdminService carries out super-admin account actions.
type AdminService struct {
	users       UserRepository
	hasher      *pkgauth.Hasher
	notifier    Notifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAdminService(users UserRepository, hasher *pkgauth.Hasher, notifier Notifier, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &AdminService{
		users:       users,
		hasher:      hasher,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RevokeUser signs the target out everywhere and optionally disables the
// account, atomically. It reports whether the account was disabled and how
// many sessions were revoked.
func (s *AdminService) RevokeUser(ctx context.Context, actorID, targetID string, disable bool) (bool, int64, error) {
	if targetID == "" {
		return false, 0, fmt.Errorf("%w: userId is required", models.ErrValidation)
	}
	if sameUserID(targetID, actorID) {
		return false, 0, ErrSelfRevocation
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return false, 0, err
	}

	revoked, err := s.users.RevokeAccess(ctx, targetID, disable)
	if err != nil {
		s.auditLogger.Record(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventSessionsRevoked,
			ActorID:       actorID,
			TargetID:      targetID,
			FailureReason: "store_error",
		})
		return false, 0, err
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSessionsRevoked,
		ActorID:   actorID,
		TargetID:  targetID,
		Success:   true,
		Metadata: map[string]string{
			"disabled":         fmt.Sprintf("%t", disable),
			"revoked_sessions": fmt.Sprintf("%d", revoked),
		},
	})

	if err := s.notifier.Notify(ctx, target.Email, NoticeAccessRevoked); err != nil {
		s.logger.Warn("security notice not delivered", slog.String("user_id", targetID), slog.Any("error", err))
	}

	return disable, revoked, nil
}

// EnableUser clears the disabled flag. Sessions revoked earlier stay revoked.
func (s *AdminService) EnableUser(ctx context.Context, actorID, targetID string) error {
	if targetID == "" {
		return fmt.Errorf("%w: userId is required", models.ErrValidation)
	}

	if err := s.users.SetDisabled(ctx, targetID, false); err != nil {
		return err
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserEnabled,
		ActorID:   actorID,
		TargetID:  targetID,
		Success:   true,
	})
	return nil
}

// EnsureSuperAdmin provisions a super-admin with the given credentials unless
// an account with that email already exists. It returns true when it created one.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to look up bootstrap user: %w", err)
	}

	if err := pkgauth.ValidateNewPassword(password); err != nil {
		return false, fmt.Errorf("bootstrap password: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		IsSuperAdmin: true,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create bootstrap user: %w", err)
	}

	s.logger.Info("bootstrap super-admin created", slog.String("user_id", user.ID))
	return true, nil
}

// sameUserID compares two user ids the way the uuid column does: case and
// surrounding whitespace are not significant.
func sameUserID(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return strings.EqualFold(a, b)
}
