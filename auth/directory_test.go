package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-product-gateway/auth"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/internal/utils"
	"github.com/jrsteele09/go-product-gateway/users"
	"github.com/stretchr/testify/require"
)

func TestDirectoryReferenceUsers(t *testing.T) {
	dir, err := auth.NewDirectoryFromSettings(config.DefaultDirectory())
	require.NoError(t, err)

	tests := []struct {
		username string
		password string
		userID   string
		scopes   []string
	}{
		{"admin", "admin123", "admin_user", []string{"create_product", "delete_product", "read_product", "update_product"}},
		{"user", "user123", "regular_user", []string{"create_product", "read_product", "update_product"}},
		{"readonly", "readonly123", "readonly_user", []string{"read_product"}},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			user := dir.AuthenticatePassword(tt.username, tt.password)
			require.NotNil(t, user)
			require.Equal(t, tt.userID, user.ID)
			require.Equal(t, tt.scopes, dir.ScopesForRoles(user.Roles))

			require.Nil(t, dir.AuthenticatePassword(tt.username, tt.password+"x"))
			require.NotNil(t, dir.FindByUserID(tt.userID))
		})
	}

	require.Nil(t, dir.AuthenticatePassword("nobody", "admin123"))
	require.Nil(t, dir.FindByUserID("nobody"))
	require.True(t, dir.IsValidClient("desktop-client"))
	require.False(t, dir.IsValidClient("rogue"))
}

func TestDirectoryInactiveAndHashedUsers(t *testing.T) {
	hash, err := users.HashPassword("secret")
	require.NoError(t, err)

	settings := config.DefaultDirectory()
	settings.Users = []config.UserEntry{
		{Username: "hashed", PasswordHash: hash, Roles: []string{"readonly"}},
		{Username: "dormant", Password: "pw", Roles: []string{"admin"}, Active: utils.Ptr(false)},
	}
	dir, err := auth.NewDirectoryFromSettings(settings)
	require.NoError(t, err)

	require.Nil(t, dir.AuthenticatePassword("dormant", "pw"), "inactive user")
	dormant := dir.FindByUserID("dormant")
	require.NotNil(t, dormant, "user id defaults to the username")
	require.False(t, dormant.Active)

	require.Nil(t, dir.AuthenticatePassword("hashed", "wrong"))
	require.NotNil(t, dir.AuthenticatePassword("hashed", "secret"))
}

func TestScopesForRoles(t *testing.T) {
	dir, err := auth.NewDirectoryFromSettings(config.DefaultDirectory())
	require.NoError(t, err)

	require.Equal(t, []string{"create_product", "delete_product", "read_product", "update_product"},
		dir.ScopesForRoles([]string{"readonly", "admin", "user"}))
	require.Empty(t, dir.ScopesForRoles([]string{"ghost"}))
	require.Empty(t, dir.ScopesForRoles(nil))
}
