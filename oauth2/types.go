package oauth2

// GrantType represents the OAuth 2.0 grant type presented to the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// PasswordGrant exchanges a username and password for tokens.
	// Used in: Resource Owner Password Credentials (RFC 6749 §4.3)
	// Token request includes: username, password, scope (optional), client_id (optional)
	// Returns: access_token and refresh_token
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	// Used in: Token refresh flow (RFC 6749 §6)
	// Token request includes: refresh_token, scope (optional)
	// Returns: new access_token (and a rotated refresh_token under the single_use policy)
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenTypeBearer is the only token_type the gateway hands out.
const TokenTypeBearer = "Bearer"

// Scopes known to the gateway. Each names an action class a connection may perform.
const (
	ScopeCreateProduct = "create_product"
	ScopeReadProduct   = "read_product"
	ScopeUpdateProduct = "update_product"
	ScopeDeleteProduct = "delete_product"
)

// AllScopes lists every scope in a stable order.
var AllScopes = []string{ScopeCreateProduct, ScopeReadProduct, ScopeUpdateProduct, ScopeDeleteProduct}
