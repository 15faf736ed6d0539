package token

import "github.com/golang-jwt/jwt/v5"

// Type distinguishes access tokens from refresh tokens via the token_type claim.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Identity is the subject a token is minted for.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// Claims is the claim set carried by both token types. Refresh tokens leave
// Email, Roles and Scopes empty.
type Claims struct {
	jwt.RegisteredClaims
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	TokenType Type     `json:"token_type"`
}

// Identity rebuilds the subject from the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Roles: c.Roles}
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
