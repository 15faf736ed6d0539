package config

import (
	"time"

	"github.com/spf13/viper"
)

type TransportConfig interface {
	GetWriteTimeout() time.Duration
	GetReadLimit() int64
	GetAllowedOrigins() []string
}

type Transport struct {
	v *viper.Viper
}

var _ TransportConfig = Transport{}

func setTransportDefaults(v *viper.Viper) {
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.read_limit", 1<<20)
	v.SetDefault("websocket.allowed_origins", []string{"*"})
}

func (t Transport) GetWriteTimeout() time.Duration {
	return t.v.GetDuration("websocket.write_timeout")
}

func (t Transport) GetReadLimit() int64 {
	return t.v.GetInt64("websocket.read_limit")
}

// GetAllowedOrigins lists Origin values accepted on the upgrade. "*" accepts any origin.
func (t Transport) GetAllowedOrigins() []string {
	return t.v.GetStringSlice("websocket.allowed_origins")
}
