package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/jrsteele09/go-product-gateway/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
	audience  = "api"
)

var testIdentity = token.Identity{
	UserID: "regular_user",
	Email:  "user@example.com",
	Roles:  []string{"user"},
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newManager(t *testing.T, c *clock, opts ...token.ManagerOption) *token.Manager {
	t.Helper()
	opts = append([]token.ManagerOption{
		token.WithIssuer(issuer),
		token.WithAudience(audience),
		token.WithNowFunc(c.Now),
	}, opts...)
	m, err := token.New(secretStr, opts...)
	require.NoError(t, err)
	return m
}

func requireReason(t *testing.T, err error, want token.Reason) {
	t.Helper()
	var rejected *token.RejectedError
	require.True(t, errors.As(err, &rejected), "expected *RejectedError, got %v", err)
	require.Equal(t, want, rejected.Reason)
}

func TestNewRefusesEmptySecret(t *testing.T) {
	_, err := token.New("")
	require.ErrorIs(t, err, apperrors.ErrMissingSecret)
}

func TestIssueAccessRoundTrip(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newManager(t, c)

	raw, err := m.IssueAccess(testIdentity, []string{"create_product", "read_product"})
	require.NoError(t, err)

	claims, err := m.Verify(raw, token.TypeAccess)
	require.NoError(t, err)
	require.Equal(t, token.TypeAccess, claims.TokenType)
	require.Equal(t, "regular_user", claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)
	require.Equal(t, []string{"user"}, claims.Roles)
	require.Equal(t, []string{"create_product", "read_product"}, claims.Scopes)
	require.True(t, claims.HasScope("read_product"))
	require.False(t, claims.HasScope("delete_product"))
	require.NotEmpty(t, claims.ID)
	require.Equal(t, c.now.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
	require.Equal(t, testIdentity, claims.Identity())
}

func TestIssueRefresh(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newManager(t, c)

	raw, err := m.IssueRefresh(testIdentity)
	require.NoError(t, err)

	claims, err := m.Verify(raw, token.TypeRefresh)
	require.NoError(t, err)
	require.Equal(t, token.TypeRefresh, claims.TokenType)
	require.Equal(t, "regular_user", claims.Subject)
	require.Empty(t, claims.Scopes)
	require.Equal(t, c.now.Add(30*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokensAreUnique(t *testing.T) {
	m := newManager(t, &clock{now: time.Now()})

	first, err := m.IssueAccess(testIdentity, nil)
	require.NoError(t, err)
	second, err := m.IssueAccess(testIdentity, nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyRejections(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newManager(t, c, token.WithTokenExpiry(time.Minute, time.Hour))

	access, err := m.IssueAccess(testIdentity, []string{"read_product"})
	require.NoError(t, err)
	refresh, err := m.IssueRefresh(testIdentity)
	require.NoError(t, err)

	t.Run("access presented as refresh", func(t *testing.T) {
		_, err := m.Verify(access, token.TypeRefresh)
		requireReason(t, err, token.ReasonWrongType)
	})

	t.Run("refresh presented as access", func(t *testing.T) {
		_, err := m.Verify(refresh, token.TypeAccess)
		requireReason(t, err, token.ReasonWrongType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify("not-a-jwt", token.TypeAccess)
		requireReason(t, err, token.ReasonMalformed)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(access, ".")
		foreign := strings.Split(refresh, ".")
		_, err := m.Verify(parts[0]+"."+parts[1]+"."+foreign[2], token.TypeAccess)
		requireReason(t, err, token.ReasonMalformed)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := token.New("another-secret", token.WithIssuer(issuer), token.WithAudience(audience))
		require.NoError(t, err)
		_, err = other.Verify(access, token.TypeAccess)
		requireReason(t, err, token.ReasonMalformed)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := newManager(t, c, token.WithAudience("someone-else"))
		_, err := other.Verify(access, token.TypeAccess)
		requireReason(t, err, token.ReasonWrongAudience)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := newManager(t, c, token.WithIssuer("someone-else"))
		_, err := other.Verify(access, token.TypeAccess)
		requireReason(t, err, token.ReasonWrongIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		later := &clock{now: c.now.Add(2 * time.Minute)}
		verifier := newManager(t, later)
		_, err := verifier.Verify(access, token.TypeAccess)
		requireReason(t, err, token.ReasonExpired)

		_, err = verifier.Verify(refresh, token.TypeRefresh)
		require.NoError(t, err, "refresh token outlives the access token")
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{
			"iss": issuer, "aud": audience, "sub": "x", "token_type": "access",
			"exp": c.now.Add(time.Hour).Unix(),
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(unsigned, token.TypeAccess)
		requireReason(t, err, token.ReasonMalformed)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := jwt.MapClaims{"iss": issuer, "aud": audience, "sub": "x", "token_type": "access"}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretStr))
		require.NoError(t, err)
		_, err = m.Verify(raw, token.TypeAccess)
		requireReason(t, err, token.ReasonMalformed)
	})
}
