package services

import (
	"context"
	"time"

	"github.com/BradenHooton/nexus/internal/models"
)

// UserRepository is the credential store as seen by the services.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	RevokeAccess(ctx context.Context, id string, disable bool) (int64, error)
	ResetPassword(ctx context.Context, id, passwordHash string) (int64, error)
}

// SessionRepository is the session store as seen by the services.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindUserBySession(ctx context.Context, tokenHash string, now time.Time) (*models.User, time.Time, error)
	Extend(ctx context.Context, tokenHash string, expiresAt, now time.Time) (time.Time, error)
	Deactivate(ctx context.Context, tokenHash string) error
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
