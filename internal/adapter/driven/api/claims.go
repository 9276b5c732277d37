package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the fields the backend puts in its access tokens. They are
// read without verifying the signature and are for display only; the server
// remains the authority on whether a token is valid.
type AccessClaims struct {
	Username  string
	UserID    int64
	Role      string
	TokenType string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is before now.
func (c AccessClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type backendClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// ParseAccessClaims decodes the claims of a backend-issued token.
func ParseAccessClaims(token string) (AccessClaims, error) {
	var claims backendClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return AccessClaims{}, fmt.Errorf("parsing token claims: %w", err)
	}

	out := AccessClaims{
		Username:  claims.Subject,
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenType: claims.Type,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
