// Package auth issues and verifies staff access tokens and guards HTTP routes with them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 8 * time.Hour

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims identify the authenticated user.
type Claims struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// IssueToken creates a signed HS256 JWT for the given user.
func IssueToken(secret, id, username, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		ID:       id,
		Role:     role,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a JWT, returning its claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
