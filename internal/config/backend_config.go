package config

import (
	"time"

	"github.com/spf13/viper"
)

type BackendConfig interface {
	GetRestURL() string
	GetSoapURL() string
	GetGrpcTarget() string
	GetGrpcUpdateMethod() string
	GetGraphQLURL() string
	GetBackendTimeout() time.Duration
}

type Backends struct {
	v *viper.Viper
}

var _ BackendConfig = Backends{}

func setBackendDefaults(v *viper.Viper) {
	v.SetDefault("backends.rest_url", "http://localhost:8001")
	v.SetDefault("backends.soap_url", "http://localhost:8002/")
	v.SetDefault("backends.grpc_target", "localhost:8003")
	v.SetDefault("backends.grpc_update_method", "/produtos.ProdutoService/UpdateProduto")
	v.SetDefault("backends.graphql_url", "http://localhost:8004/graphql")
	v.SetDefault("backends.timeout", 10*time.Second)
}

func (b Backends) GetRestURL() string {
	return b.v.GetString("backends.rest_url")
}

func (b Backends) GetSoapURL() string {
	return b.v.GetString("backends.soap_url")
}

func (b Backends) GetGrpcTarget() string {
	return b.v.GetString("backends.grpc_target")
}

func (b Backends) GetGrpcUpdateMethod() string {
	return b.v.GetString("backends.grpc_update_method")
}

func (b Backends) GetGraphQLURL() string {
	return b.v.GetString("backends.graphql_url")
}

func (b Backends) GetBackendTimeout() time.Duration {
	return b.v.GetDuration("backends.timeout")
}
