package models

import (
	"time"
)

// User is a principal of the credential store. PasswordHash is populated only
// by repository reads and never serialized.
type User struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"`
	IsSuperAdmin          bool      `json:"is_super_admin"`
	IsTemporarySuperAdmin bool      `json:"is_temporary_super_admin"`
	IsDisabled            bool      `json:"is_disabled"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.PasswordHash = ""
	return &clean
}

// UserSummary is the projection returned by the login endpoint.
type UserSummary struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	IsSuperAdmin          bool   `json:"is_super_admin"`
	IsTemporarySuperAdmin bool   `json:"is_temporary_super_admin"`
}

// Summary projects the user onto the login response shape.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:                    u.ID,
		Email:                 u.Email,
		IsSuperAdmin:          u.IsSuperAdmin,
		IsTemporarySuperAdmin: u.IsTemporarySuperAdmin,
	}
}
