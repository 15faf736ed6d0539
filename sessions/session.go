package sessions

import (
	"time"
)

// Identity is the authenticated user bound to a connection.
type Identity struct {
	UserID string   // Token subject
	Email  string   // User email
	Roles  []string // Roles at the time of the grant
}

// Session stores the authentication state of one live connection.
// Created unauthenticated on connect, overwritten by each successful grant and
// discarded on disconnect.
type Session struct {
	ConnectionID  string    // Id of the owning connection
	Authenticated bool      // True once a grant succeeded on this connection
	Identity      Identity  // Set after authentication
	Scopes        []string  // Granted scopes
	AccessToken   string    // Access token (JWT), re-verified on every privileged action
	RefreshToken  string    // Refresh token presented or issued with the last grant
	Expiry        time.Time // When the access token expires
	Timestamp     time.Time // When the session was last written
}

// Clone returns a deep copy so callers never share slices with the registry.
func (s Session) Clone() Session {
	c := s
	c.Scopes = append([]string(nil), s.Scopes...)
	c.Identity.Roles = append([]string(nil), s.Identity.Roles...)
	return c
}
