package oauth2

// TokenResponse represents a successful grant.
// Written both to WebSocket connections and to the /oauth2/token endpoint.
type TokenResponse struct {
	// AccessToken is the HS256 JWT used to authorize actions.
	// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 86400 (24 hours)
	// Note: This is a hint - actual expiration is in the JWT's "exp" claim
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is the long-lived JWT used with grant_type=refresh_token.
	// Present on password grants, and on refresh grants only when refresh tokens rotate.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space-separated list of granted scopes.
	// Note: May be less than requested if some scopes were denied
	Scope string `json:"scope"`

	// UserID and Email identify the authenticated user.
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
