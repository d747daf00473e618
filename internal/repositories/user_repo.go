package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/nexus/internal/database"
	"github.com/BradenHooton/nexus/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, encrypted_password, is_super_admin, is_temporary_super_admin, is_disabled, created_at, updated_at`

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner, extra ...interface{}) (*models.User, error) {
	var user models.User

	dest := []interface{}{
		&user.ID, &user.Email, &user.PasswordHash,
		&user.IsSuperAdmin, &user.IsTemporarySuperAdmin, &user.IsDisabled,
		&user.CreatedAt, &user.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := scanner.Scan(dest...); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail matches case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	return scanUserRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, encrypted_password, is_super_admin, is_temporary_super_admin, is_disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, strings.ToLower(strings.TrimSpace(user.Email)), user.PasswordHash,
		user.IsSuperAdmin, user.IsTemporarySuperAdmin, user.IsDisabled,
		user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET encrypted_password = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *UserRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	query := `UPDATE users SET is_disabled = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, disabled)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RevokeAccess deactivates every session of the user and, when disable is
// set, disables the account. Both happen in one transaction.
func (r *UserRepository) RevokeAccess(ctx context.Context, id string, disable bool) (int64, error) {
	var revoked int64

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, id); err != nil {
			return err
		}

		n, err := deactivateUserSessions(ctx, tx, id)
		if err != nil {
			return err
		}
		revoked = n

		if disable {
			if _, err := tx.Exec(ctx, `UPDATE users SET is_disabled = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
				return fmt.Errorf("failed to disable user: %w", database.MapPostgresError(err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return revoked, nil
}

// ResetPassword stores a new hash and deactivates every session of the user
// in one transaction.
func (r *UserRepository) ResetPassword(ctx context.Context, id, passwordHash string) (int64, error) {
	var revoked int64

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET encrypted_password = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash); err != nil {
			return fmt.Errorf("failed to update password: %w", database.MapPostgresError(err))
		}

		n, err := deactivateUserSessions(ctx, tx, id)
		if err != nil {
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return revoked, nil
}

func lockUser(ctx context.Context, tx pgx.Tx, id string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) || errors.Is(mapped, models.ErrValidation) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to lock user: %w", mapped)
	}
	return nil
}
