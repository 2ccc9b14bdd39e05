package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the decoded, verified token payload
type Claims struct {
	jwt.RegisteredClaims
	UserRole Role `json:"role"`
}

// Subject returns the subject claim
func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Role returns the global role
func (c *Claims) Role() Role {
	return c.UserRole
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *Claims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// HasRole checks the claims role against the given set
func (c *Claims) HasRole(allowed RoleSet) bool {
	return allowed.Contains(c.UserRole)
}

// claimsIdentity lets the token service re-issue from verified claims
type claimsIdentity struct {
	claims *Claims
}

func (c claimsIdentity) ID() string        { return c.claims.Subject() }
func (c claimsIdentity) Username() string  { return "" }
func (c claimsIdentity) Role() Role        { return c.claims.Role() }
func (c claimsIdentity) FirstName() string { return "" }
func (c claimsIdentity) LastName() string  { return "" }

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
