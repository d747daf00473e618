package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const resetTokenAudience = "nexus-dev-reset"

var ErrInvalidResetToken = errors.New("invalid reset token")

// ResetTokenManager issues and verifies the short-lived HS256 grants that
// authorize the development password reset. The subject is the account email.
type ResetTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokenManager(secret string, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a grant for email.
func (m *ResetTokenManager) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   strings.ToLower(strings.TrimSpace(email)),
		Audience:  jwt.ClaimStrings{resetTokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry and returns the email. Grants
// whose lifetime exceeds the configured TTL are refused.
func (m *ResetTokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidResetToken
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrInvalidResetToken
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > m.ttl {
		return "", ErrInvalidResetToken
	}

	return claims.Subject, nil
}
