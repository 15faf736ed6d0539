package config

import "github.com/spf13/viper"

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Redis struct {
	v *viper.Viper
}

var _ RedisConfig = Redis{}

func setRedisDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

func (r Redis) GetRedisAddr() string {
	return r.v.GetString("redis.addr")
}

func (r Redis) GetRedisPassword() string {
	return r.v.GetString("redis.password")
}

func (r Redis) GetRedisDB() int {
	return r.v.GetInt("redis.db")
}
