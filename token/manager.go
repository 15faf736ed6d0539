package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

const (
	defaultAccessTokenExpiry  = 24 * time.Hour
	defaultRefreshTokenExpiry = 30 * 24 * time.Hour
)

// Manager mints and verifies access and refresh tokens. The only state it holds is
// set at construction, so it is safe for concurrent use.
type Manager struct {
	signer             Signer
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

// New builds a Manager signing with HS256 over secret. An empty secret is refused.
func New(secret string, options ...ManagerOption) (*Manager, error) {
	signer, err := NewHMACSigner(secret)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[token.New]")
	}

	m := &Manager{
		signer:   signer,
		issuer:   "product-gateway",
		audience: "product-api",
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = defaultRefreshTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// AccessTokenExpiry is the lifetime stamped on access tokens.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// IssueAccess signs an access token carrying the identity and the granted scopes.
func (m *Manager) IssueAccess(identity Identity, scopes []string) (string, error) {
	claims := m.newClaims(identity.UserID, TypeAccess, m.accessTokenExpiry)
	claims.Email = identity.Email
	claims.Roles = identity.Roles
	claims.Scopes = scopes

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.IssueAccess]")
	}
	return signed, nil
}

// IssueRefresh signs a refresh token for the identity. It carries no scopes: they are
// re-derived from the user's current roles on every refresh grant.
func (m *Manager) IssueRefresh(identity Identity) (string, error) {
	claims := m.newClaims(identity.UserID, TypeRefresh, m.refreshTokenExpiry)

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Manager.IssueRefresh]")
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience, expiry and token_type.
// Any failure is returned as a *RejectedError.
func (m *Manager) Verify(raw string, expected Type) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return nil, &RejectedError{Reason: classify(err), Err: err}
	}

	if claims.TokenType != expected {
		return nil, &RejectedError{
			Reason: ReasonWrongType,
			Err:    pkgerrors.Errorf("expected %s token, got %q", expected, claims.TokenType),
		}
	}
	return claims, nil
}

func (m *Manager) newClaims(subject string, tokenType Type, expiry time.Duration) *Claims {
	now := m.nowFunc()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(),
		},
		TokenType: tokenType,
	}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ReasonWrongAudience
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ReasonWrongIssuer
	default:
		return ReasonMalformed
	}
}
