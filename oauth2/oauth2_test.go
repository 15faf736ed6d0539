package oauth2_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "single", input: "read_product", want: []string{"read_product"}},
		{name: "extra whitespace", input: "  create_product   delete_product ", want: []string{"create_product", "delete_product"}},
		{name: "duplicates", input: "read_product read_product", want: []string{"read_product"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, oauth2.ParseScope(tt.input))
		})
	}
}

func TestTokenRequestHasScope(t *testing.T) {
	require.False(t, oauth2.TokenRequest{Scope: "   "}.HasScope())
	require.True(t, oauth2.TokenRequest{Scope: "read_product"}.HasScope())
}

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", oauth2.NewError(oauth2.ErrInvalidGrant, "invalid credentials"))

	require.True(t, errors.Is(err, &oauth2.Error{Kind: oauth2.ErrInvalidGrant}))
	require.False(t, errors.Is(err, &oauth2.Error{Kind: oauth2.ErrInvalidRequest}))

	var oerr *oauth2.Error
	require.True(t, errors.As(err, &oerr))
	require.Equal(t, "invalid credentials", oerr.Description)
}

func TestErrorWireFormat(t *testing.T) {
	b, err := json.Marshal(oauth2.NewError(oauth2.ErrUnsupportedGrantType, "grant_type %q is not supported", "implicit"))
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"unsupported_grant_type","error_description":"grant_type \"implicit\" is not supported"}`, string(b))
}
