package users

import (
	"golang.org/x/crypto/bcrypt"
)

// RoleType names a role configured in the directory. Roles map to scope sets.
type RoleType = string

type User struct {
	ID           string     `json:"id,omitempty"`        // Unique identifier for the user, used as the token subject
	Username     string     `json:"username,omitempty"`  // Login name presented on the password grant
	Email        string     `json:"email,omitempty"`     // User's email address
	PasswordHash string     `json:"-"`                   // bcrypt verifier - never serialize
	Roles        []RoleType `json:"roles,omitempty"`     // Roles, each mapping to a set of scopes
	Active       bool       `json:"active"`              // Inactive users cannot obtain or refresh tokens
	ClientID     string     `json:"client_id,omitempty"` // Client the user is registered through
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares nothing mutable with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]RoleType(nil), u.Roles...)
	return &c
}
