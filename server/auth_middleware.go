package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/jrsteele09/go-product-gateway/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified access token claims
const ContextKeyClaims ContextKey = "claims"

// ClaimsFromContext returns the claims RequireAuth stored on the request.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

// RequireAuth is middleware that validates a Bearer access token
// Used for API routes that expect OAuth2 tokens in Authorization header
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			unauthorized(w, "Invalid Authorization header format")
			return
		}

		claims, err := s.tokens.Verify(parts[1], token.TypeAccess)
		if err != nil {
			var rejected *token.RejectedError
			if errors.As(err, &rejected) {
				unauthorized(w, fmt.Sprintf("access token rejected: %s", rejected.Reason))
				return
			}
			unauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeJSONError(w, string(oauth2.ErrInvalidToken), description, http.StatusUnauthorized)
}

type userInfoResponse struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
	Scope   string   `json:"scope"`
}

// UserInfo describes the bearer of the access token.
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			unauthorized(w, "Missing token claims")
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(userInfoResponse{
			Subject: claims.Subject,
			Email:   claims.Email,
			Roles:   claims.Roles,
			Scope:   oauth2.FormatScope(claims.Scopes),
		})
	}
}
