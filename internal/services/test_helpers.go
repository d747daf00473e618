package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/BradenHooton/nexus/internal/models"
	pkgauth "github.com/BradenHooton/nexus/pkg/auth"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	SetDisabledFunc    func(ctx context.Context, id string, disabled bool) error
	RevokeAccessFunc   func(ctx context.Context, id string, disable bool) (int64, error)
	ResetPasswordFunc  func(ctx context.Context, id, passwordHash string) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternal
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	if m.SetDisabledFunc != nil {
		return m.SetDisabledFunc(ctx, id, disabled)
	}
	return nil
}

func (m *MockUserRepository) RevokeAccess(ctx context.Context, id string, disable bool) (int64, error) {
	if m.RevokeAccessFunc != nil {
		return m.RevokeAccessFunc(ctx, id, disable)
	}
	return 0, nil
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id, passwordHash string) (int64, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, id, passwordHash)
	}
	return 0, nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc               func(ctx context.Context, session *models.Session) error
	FindUserBySessionFunc    func(ctx context.Context, tokenHash string, now time.Time) (*models.User, time.Time, error)
	ExtendFunc               func(ctx context.Context, tokenHash string, expiresAt, now time.Time) (time.Time, error)
	DeactivateFunc           func(ctx context.Context, tokenHash string) error
	DeactivateAllForUserFunc func(ctx context.Context, userID string) (int64, error)
	DeleteDeadBeforeFunc     func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) FindUserBySession(ctx context.Context, tokenHash string, now time.Time) (*models.User, time.Time, error) {
	if m.FindUserBySessionFunc != nil {
		return m.FindUserBySessionFunc(ctx, tokenHash, now)
	}
	return nil, time.Time{}, models.ErrNotFound
}

func (m *MockSessionRepository) Extend(ctx context.Context, tokenHash string, expiresAt, now time.Time) (time.Time, error) {
	if m.ExtendFunc != nil {
		return m.ExtendFunc(ctx, tokenHash, expiresAt, now)
	}
	return expiresAt, nil
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, tokenHash string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, tokenHash)
	}
	return nil
}

func (m *MockSessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	if m.DeactivateAllForUserFunc != nil {
		return m.DeactivateAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteDeadBeforeFunc != nil {
		return m.DeleteDeadBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockNotifier records delivered notices.
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, to string, notice SecurityNotice) error
	Sent       []SecurityNotice
}

func (m *MockNotifier) Notify(ctx context.Context, to string, notice SecurityNotice) error {
	m.Sent = append(m.Sent, notice)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, to, notice)
	}
	return nil
}

// MockTimingDelay implements TimingDelayer for testing
type MockTimingDelay struct {
	WaitFromFunc func(startTime time.Time, succeeded bool)
	Outcomes     []bool
}

func (m *MockTimingDelay) WaitFrom(startTime time.Time, succeeded bool) {
	m.Outcomes = append(m.Outcomes, succeeded)
	if m.WaitFromFunc != nil {
		m.WaitFromFunc(startTime, succeeded)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() *pkgauth.Hasher {
	return pkgauth.NewHasher(bcrypt.MinCost)
}

func mustHash(password string) string {
	hash, err := testHasher().Hash(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func newTestAuthService(users UserRepository, sessions SessionRepository, notifier Notifier, delay TimingDelayer) *AuthService {
	logger := discardLogger()
	svc, err := NewAuthService(users, sessions, testHasher(), notifier, delay, 24*time.Hour, logger, pkglogger.NewAuditLogger(logger))
	if err != nil {
		panic(err)
	}
	return svc
}
