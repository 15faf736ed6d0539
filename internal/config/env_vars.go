package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() zerolog.Level
}

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func setEnvDefaults(v *viper.Viper) {
	v.SetDefault("port", "6789")
	v.SetDefault("app_name", "Product Gateway")
	v.SetDefault("env", "DEV")
	v.SetDefault("log_level", "info")
}

func (e EnvVars) GetPort() string {
	port := e.v.GetString("port")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString("app_name")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString("env"))
}

// GetLogLevel maps log_level onto zerolog, falling back to info on unknown values.
func (e EnvVars) GetLogLevel() zerolog.Level {
	switch strings.ToLower(e.v.GetString("log_level")) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
