package models

import "time"

// Session is one authenticated browser session. Only the SHA-256 digest of the
// opaque token is stored.
type Session struct {
	TokenHash string    `db:"token_hash"`
	UserID    string    `db:"user_id"`
	IsActive  bool      `db:"is_active"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
