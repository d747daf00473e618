package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/nexus/internal/models"
	pkgauth "github.com/BradenHooton/nexus/pkg/auth"
	pkghttp "github.com/BradenHooton/nexus/pkg/http"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
)

// TimingDelayer pads failed logins so they take a uniform amount of time.
type TimingDelayer interface {
	WaitFrom(startTime time.Time, succeeded bool)
}

// dummyPassword is hashed once at startup so unknown emails still cost a
// bcrypt comparison.
const dummyPassword = "nexus-timing-equalizer"

// AuthService is the session manager: it verifies credentials and creates,
// validates, refreshes and revokes sessions.
type AuthService struct {
	users       UserRepository
	sessions    SessionRepository
	hasher      *pkgauth.Hasher
	notifier    Notifier
	timingDelay TimingDelayer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	ttl         time.Duration
	dummyHash   string
	now         func() time.Time
}

func NewAuthService(
	users UserRepository,
	sessions SessionRepository,
	hasher *pkgauth.Hasher,
	notifier Notifier,
	timingDelay TimingDelayer,
	ttl time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare timing hash: %w", err)
	}

	if notifier == nil {
		notifier = NoopNotifier{}
	}

	return &AuthService{
		users:       users,
		sessions:    sessions,
		hasher:      hasher,
		notifier:    notifier,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
		ttl:         ttl,
		dummyHash:   dummyHash,
		now:         time.Now,
	}, nil
}

// SetClock replaces the time source. Tests only.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// VerifyCredentials returns the matching, enabled user without its hash.
// Every failure is reported as models.ErrInvalidCredentials.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !pkgauth.IsMismatch(err) {
			s.logger.Error("stored password hash is unusable", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return nil, models.ErrInvalidCredentials
	}

	// Checked after the comparison so a disabled account costs the same time.
	if user.IsDisabled {
		return nil, models.ErrInvalidCredentials
	}

	return user.Sanitized(), nil
}

// CreateSession mints a new opaque token for the user and stores its digest.
func (s *AuthService) CreateSession(ctx context.Context, userID, email string) (string, time.Time, error) {
	token, err := pkgauth.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	session := &models.Session{
		TokenHash: pkgauth.HashToken(token),
		UserID:    userID,
		IsActive:  true,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, err
	}

	s.logger.Info("session created",
		slog.String("user_id", userID),
		slog.String("email", pkglogger.SanitizedEmail(email)),
	)

	return token, session.ExpiresAt, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	start := s.now()

	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		if s.timingDelay != nil {
			s.timingDelay.WaitFrom(start, false)
		}

		reason := "invalid_credentials"
		if !errors.Is(err, models.ErrInvalidCredentials) {
			reason = "internal_error"
			s.logger.Error("login failed", slog.Any("error", err))
		}
		s.auditLogger.Record(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			FailureReason: reason,
			Metadata:      map[string]string{"email": pkglogger.SanitizedEmail(email)},
		})
		return nil, err
	}

	token, expiresAt, err := s.CreateSession(ctx, user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		ActorID:   user.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})

	if s.timingDelay != nil {
		s.timingDelay.WaitFrom(start, true)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetCurrentUser resolves a token to its user. Missing, revoked and expired
// sessions, and sessions of disabled users, yield models.ErrUnauthenticated.
func (s *AuthService) GetCurrentUser(ctx context.Context, token string) (*models.User, error) {
	user, _, err := s.lookup(ctx, token, s.now())
	return user, err
}

func (s *AuthService) lookup(ctx context.Context, token string, now time.Time) (*models.User, time.Time, error) {
	if token == "" {
		return nil, time.Time{}, models.ErrUnauthenticated
	}

	user, expiresAt, err := s.sessions.FindUserBySession(ctx, pkgauth.HashToken(token), now)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, time.Time{}, models.ErrUnauthenticated
		}
		return nil, time.Time{}, fmt.Errorf("failed to look up session: %w", err)
	}

	if user.IsDisabled {
		return nil, time.Time{}, models.ErrUnauthenticated
	}

	return user.Sanitized(), expiresAt, nil
}

// ProtectAPIRoute authenticates a request token and slides its expiry
// forward. Exactly one of the user and the APIError is non-nil. The returned
// time is the session's new expiry, for re-issuing the cookie.
func (s *AuthService) ProtectAPIRoute(ctx context.Context, token string) (*models.User, time.Time, *pkghttp.APIError) {
	now := s.now()

	user, expiresAt, err := s.lookup(ctx, token, now)
	if err != nil {
		if errors.Is(err, models.ErrUnauthenticated) {
			return nil, time.Time{}, pkghttp.NewUnauthorized("Authentication required")
		}
		s.logger.Error("session validation failed", slog.Any("error", err))
		return nil, time.Time{}, pkghttp.NewInternal()
	}

	extended, err := s.sessions.Extend(ctx, pkgauth.HashToken(token), now.Add(s.ttl), now)
	switch {
	case err == nil:
		expiresAt = extended
	case errors.Is(err, models.ErrNotFound):
		// Revoked between the lookup and the refresh.
		return nil, time.Time{}, pkghttp.NewUnauthorized("Authentication required")
	default:
		s.logger.Warn("session refresh failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return user, expiresAt, nil
}

// Logout deactivates the session behind token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessions.Deactivate(ctx, pkgauth.HashToken(token)); err != nil {
		return err
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		Success:   true,
	})
	return nil
}

// RevokeAllSessions deactivates every session of the user.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	revoked, err := s.sessions.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("sessions revoked", slog.String("user_id", userID), slog.Int64("count", revoked))
	return revoked, nil
}

// ChangePassword re-verifies the current password before storing a new hash.
// Other sessions of the user stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new password are required", models.ErrValidation)
	}
	if err := pkgauth.ValidateNewPassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.Record(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordChange,
			ActorID:       userID,
			FailureReason: "wrong_current_password",
		})
		return models.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordChange,
		ActorID:   userID,
		Success:   true,
	})
	s.notify(ctx, user.Email, NoticePasswordChanged)

	return nil
}

// ResetPassword replaces the password of the account registered under email
// and revokes all of its sessions. It backs the development reset route.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) (int64, error) {
	if err := pkgauth.ValidateNewPassword(newPassword); err != nil {
		return 0, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return 0, err
	}

	revoked, err := s.users.ResetPassword(ctx, user.ID, hash)
	if err != nil {
		return 0, err
	}

	s.auditLogger.Record(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventDevReset,
		TargetID:  user.ID,
		Success:   true,
		Metadata:  map[string]string{"revoked_sessions": fmt.Sprintf("%d", revoked)},
	})
	s.notify(ctx, user.Email, NoticePasswordReset)

	return revoked, nil
}

// CompactSessions deletes sessions that expired more than retention ago.
func (s *AuthService) CompactSessions(ctx context.Context, retention time.Duration) (int64, error) {
	return s.sessions.DeleteDeadBefore(ctx, s.now().Add(-retention))
}

func (s *AuthService) notify(ctx context.Context, to string, notice SecurityNotice) {
	if err := s.notifier.Notify(ctx, to, notice); err != nil {
		s.logger.Warn("security notice not delivered",
			slog.String("email", pkglogger.SanitizedEmail(to)),
			slog.Any("error", err),
		)
	}
}
