package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.FromViper(viper.New())

	require.Equal(t, ":6789", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, zerolog.InfoLevel, c.GetLogLevel())
	require.Equal(t, 24*time.Hour, c.GetAccessTokenExpiry())
	require.Equal(t, 30*24*time.Hour, c.GetRefreshTokenExpiry())
	require.Equal(t, config.RefreshPolicyReuse, c.GetRefreshPolicy())
	require.Equal(t, 10*time.Second, c.GetBackendTimeout())
	require.Equal(t, "product_updates", c.GetBrokerQueue())
	require.Equal(t, 5*time.Second, c.GetReconnectStep())
	require.Equal(t, 30*time.Second, c.GetReconnectMaxDelay())
	require.Equal(t, 10, c.GetReconnectMaxAttempts())

	dir, err := c.GetDirectory()
	require.NoError(t, err)
	require.Len(t, dir.Users, 3)
	require.ElementsMatch(t, []string{"read_product"}, dir.Roles["readonly"])
}

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		err := config.FromViper(viper.New()).Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "oauth.secret is required")
	})

	t.Run("aggregates problems", func(t *testing.T) {
		v := viper.New()
		v.Set("oauth.refresh_policy", "sometimes")
		v.Set("backends.timeout", "0s")
		err := config.FromViper(v).Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "oauth.secret is required")
		require.Contains(t, err.Error(), "refresh_policy")
		require.Contains(t, err.Error(), "backends.timeout")
	})

	t.Run("non-positive broker and transport limits", func(t *testing.T) {
		v := viper.New()
		v.Set("oauth.secret", "s3cr3t")
		v.Set("broker.reconnect.max_attempts", 0)
		v.Set("broker.send_timeout", "0s")
		v.Set("websocket.write_timeout", "-1s")
		err := config.FromViper(v).Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "broker.reconnect.max_attempts")
		require.Contains(t, err.Error(), "broker.send_timeout")
		require.Contains(t, err.Error(), "websocket.write_timeout")
	})

	t.Run("valid", func(t *testing.T) {
		v := viper.New()
		v.Set("oauth.secret", "s3cr3t")
		require.NoError(t, config.FromViper(v).Validate())
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "9000")
	t.Setenv("GATEWAY_OAUTH_SECRET", "from-env")
	t.Setenv("GATEWAY_LOG_LEVEL", "debug")

	c := config.New()
	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "from-env", c.GetSecret())
	require.Equal(t, zerolog.DebugLevel, c.GetLogLevel())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
oauth:
  secret: file-secret
  refresh_policy: single_use
directory:
  roles:
    viewer: [read_product]
  users:
    - username: alice
      password: wonderland
      user_id: alice-1
      roles: [viewer]
`), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "file-secret", c.GetSecret())
	require.Equal(t, config.RefreshPolicySingleUse, c.GetRefreshPolicy())

	d, err := c.GetDirectory()
	require.NoError(t, err)
	require.Len(t, d.Users, 1)
	require.Equal(t, "alice-1", d.Users[0].UserID)
	require.Equal(t, []string{"read_product"}, d.Roles["viewer"])
	require.Len(t, d.Clients, 1, "clients fall back to the defaults")
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
oauth:
  secret: x
directory:
  users:
    - username: bob
      password: pw
      roles: [ghost]
`), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)
	require.ErrorContains(t, c.Validate(), `unknown role "ghost"`)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
