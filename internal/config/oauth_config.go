package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	RefreshPolicyReuse     = "reuse"
	RefreshPolicySingleUse = "single_use"

	RefreshStoreMemory = "memory"
	RefreshStoreRedis  = "redis"
)

type OAuthConfig interface {
	GetIssuer() string
	GetAudience() string
	GetSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshPolicy() string
	GetRefreshStore() string
}

type OAuth struct {
	v *viper.Viper
}

var _ OAuthConfig = OAuth{}

func setOAuthDefaults(v *viper.Viper) {
	v.SetDefault("oauth.issuer", "product-gateway")
	v.SetDefault("oauth.audience", "product-api")
	v.SetDefault("oauth.secret", "")
	v.SetDefault("oauth.access_token_expiry", 24*time.Hour)
	v.SetDefault("oauth.refresh_token_expiry", 30*24*time.Hour)
	v.SetDefault("oauth.refresh_policy", RefreshPolicyReuse)
	v.SetDefault("oauth.refresh_store", RefreshStoreMemory)
}

func (o OAuth) GetIssuer() string {
	return o.v.GetString("oauth.issuer")
}

func (o OAuth) GetAudience() string {
	return o.v.GetString("oauth.audience")
}

// GetSecret returns the pre-shared HS256 key. Never log it.
func (o OAuth) GetSecret() string {
	return o.v.GetString("oauth.secret")
}

func (o OAuth) GetAccessTokenExpiry() time.Duration {
	return o.v.GetDuration("oauth.access_token_expiry")
}

func (o OAuth) GetRefreshTokenExpiry() time.Duration {
	return o.v.GetDuration("oauth.refresh_token_expiry")
}

func (o OAuth) GetRefreshPolicy() string {
	return o.v.GetString("oauth.refresh_policy")
}

// GetRefreshStore selects where used refresh token ids are tracked under the single_use policy.
func (o OAuth) GetRefreshStore() string {
	return o.v.GetString("oauth.refresh_store")
}
