package config

import (
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "GATEWAY"
	configFileEnv = "GATEWAY_CONFIG"
)

type Config interface {
	EnvConfig
	OAuthConfig
	BackendConfig
	BrokerConfig
	RedisConfig
	DirectoryConfig
	TransportConfig
	Validate() error
}

type mainConfig struct {
	EnvVars
	OAuth
	Backends
	Broker
	Redis
	Directory
	Transport
}

// New returns a configuration built from defaults and GATEWAY_* environment variables.
func New() Config {
	return FromViper(newViper())
}

// Load reads an optional YAML file on top of the defaults. An empty path falls back to
// GATEWAY_CONFIG, then to config.yaml in "." or "./config". A missing default file is not an error.
func Load(path string) (Config, error) {
	v := newViper()
	if path == "" {
		path = os.Getenv(configFileEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "[config.Load] failed to read config")
		}
	}
	return FromViper(v), nil
}

// FromViper wraps an already populated viper instance. Defaults are applied on top.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars:   EnvVars{v: v},
		OAuth:     OAuth{v: v},
		Backends:  Backends{v: v},
		Broker:    Broker{v: v},
		Redis:     Redis{v: v},
		Directory: Directory{v: v},
		Transport: Transport{v: v},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	setEnvDefaults(v)
	setOAuthDefaults(v)
	setBackendDefaults(v)
	setBrokerDefaults(v)
	setRedisDefaults(v)
	setTransportDefaults(v)
}

// Validate reports every configuration problem at once.
func (c mainConfig) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.GetSecret()) == "" {
		result = multierror.Append(result, errors.New("oauth.secret is required"))
	}
	if c.GetAccessTokenExpiry() <= 0 {
		result = multierror.Append(result, errors.New("oauth.access_token_expiry must be positive"))
	}
	if c.GetRefreshTokenExpiry() <= 0 {
		result = multierror.Append(result, errors.New("oauth.refresh_token_expiry must be positive"))
	}
	switch c.GetRefreshPolicy() {
	case RefreshPolicyReuse:
	case RefreshPolicySingleUse:
		if c.GetRedisAddr() == "" && c.GetRefreshStore() == RefreshStoreRedis {
			result = multierror.Append(result, errors.New("redis.addr is required for the redis refresh store"))
		}
	default:
		result = multierror.Append(result, errors.Errorf("oauth.refresh_policy %q is not one of reuse, single_use", c.GetRefreshPolicy()))
	}
	if c.GetBackendTimeout() <= 0 {
		result = multierror.Append(result, errors.New("backends.timeout must be positive"))
	}
	if c.GetBrokerQueue() == "" {
		result = multierror.Append(result, errors.New("broker.queue is required"))
	}
	if c.GetReconnectStep() <= 0 || c.GetReconnectMaxDelay() < c.GetReconnectStep() {
		result = multierror.Append(result, errors.New("broker.reconnect step must be positive and not exceed max_delay"))
	}
	if c.GetReconnectMaxAttempts() <= 0 {
		result = multierror.Append(result, errors.New("broker.reconnect.max_attempts must be positive"))
	}
	if c.GetFanoutSendTimeout() <= 0 {
		result = multierror.Append(result, errors.New("broker.send_timeout must be positive"))
	}
	if c.GetWriteTimeout() <= 0 {
		result = multierror.Append(result, errors.New("websocket.write_timeout must be positive"))
	}
	if _, err := c.GetDirectory(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
