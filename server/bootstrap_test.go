package server_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/server"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	t.Run("broker disabled", func(t *testing.T) {
		v := viper.New()
		v.Set("oauth.secret", "s3cret")
		v.Set("broker.enabled", false)
		gw, err := server.Bootstrap(context.Background(), config.FromViper(v))
		require.NoError(t, err)
		t.Cleanup(func() { _ = gw.Close() })
		require.NotNil(t, gw.Server)
		require.NotNil(t, gw.Registry)
		require.Nil(t, gw.Bridge)
	})

	t.Run("broker enabled", func(t *testing.T) {
		v := viper.New()
		v.Set("oauth.secret", "s3cret")
		v.Set("oauth.refresh_policy", config.RefreshPolicySingleUse)
		gw, err := server.Bootstrap(context.Background(), config.FromViper(v))
		require.NoError(t, err)
		t.Cleanup(func() { _ = gw.Close() })
		require.NotNil(t, gw.Bridge)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := server.Bootstrap(context.Background(), config.FromViper(viper.New()))
		require.Error(t, err)
	})
}
