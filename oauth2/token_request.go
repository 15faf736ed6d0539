package oauth2

// TokenRequest is a grant request arriving either as a WebSocket message or as the
// form-encoded body of POST /oauth2/token.
type TokenRequest struct {
	// GrantType selects the grant state machine.
	// Example: "password" or "refresh_token"
	GrantType GrantType `json:"grant_type"`

	// Username and Password are required for the password grant.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// RefreshToken is required for the refresh_token grant.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is an optional space-delimited list narrowing the role-derived scopes.
	// Example: "create_product delete_product"
	Scope string `json:"scope,omitempty"`

	// ClientID optionally identifies the calling client. Must be on the allow-list when present.
	ClientID string `json:"client_id,omitempty"`
}

// HasScope reports whether the request carried an explicit scope parameter.
func (r TokenRequest) HasScope() bool {
	return len(ParseScope(r.Scope)) > 0
}
