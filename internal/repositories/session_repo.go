package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/nexus/internal/database"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		session.TokenHash, session.UserID, session.IsActive, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", database.MapPostgresError(err))
	}

	return nil
}

// FindUserBySession returns the owner of an active session that has not
// expired at now, together with the session's current expiry. The user is
// returned even when disabled; callers decide.
func (r *SessionRepository) FindUserBySession(ctx context.Context, tokenHash string, now time.Time) (*models.User, time.Time, error) {
	query := `
		SELECT u.id, u.email, u.encrypted_password, u.is_super_admin, u.is_temporary_super_admin,
		       u.is_disabled, u.created_at, u.updated_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.is_active AND s.expires_at > $2
	`

	var expiresAt time.Time
	user, err := scanUserRow(r.pool.QueryRow(ctx, query, tokenHash, now), &expiresAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	return user, expiresAt, nil
}

// Extend pushes the expiry of a live session forward to at least expiresAt
// and returns the resulting expiry. It never shortens a session.
func (r *SessionRepository) Extend(ctx context.Context, tokenHash string, expiresAt, now time.Time) (time.Time, error) {
	query := `
		UPDATE sessions SET expires_at = GREATEST(expires_at, $2)
		WHERE token_hash = $1 AND is_active AND expires_at > $3
		RETURNING expires_at
	`

	var extended time.Time
	if err := r.pool.QueryRow(ctx, query, tokenHash, expiresAt, now).Scan(&extended); err != nil {
		return time.Time{}, database.MapPostgresError(err)
	}

	return extended, nil
}

// Deactivate soft-invalidates one session. Unknown or already inactive
// tokens are not an error.
func (r *SessionRepository) Deactivate(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET is_active = FALSE WHERE token_hash = $1 AND is_active`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	return deactivateUserSessions(ctx, r.pool, userID)
}

// DeleteDeadBefore removes sessions whose expiry is older than cutoff. Only
// the background compactor calls it.
func (r *SessionRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to compact sessions: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func deactivateUserSessions(ctx context.Context, q execer, userID string) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}
