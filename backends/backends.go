// Package backends holds the clients for the four product front ends the gateway
// forwards actions to.
package backends

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/pkg/errors"
)

// Product is the record exchanged with every backend.
type Product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// CreateResult is returned by the create backend.
type CreateResult struct {
	Message   string `json:"message"`
	StorageID string `json:"storage_id,omitempty"`
}

// MutationResult is returned by the update and delete backends.
type MutationResult struct {
	Message string `json:"message"`
}

type Creator interface {
	Create(ctx context.Context, product Product) (*CreateResult, error)
}

type Lister interface {
	ListAll(ctx context.Context) ([]Product, error)
}

type Updater interface {
	Update(ctx context.Context, id int, product Product) (*MutationResult, error)
}

type Deleter interface {
	Delete(ctx context.Context, id int) (*MutationResult, error)
}

// Set bundles one adapter per action.
type Set struct {
	Creator Creator
	Lister  Lister
	Updater Updater
	Deleter Deleter
}

type contextKey string

const contextKeyUserID contextKey = "user_id"

// WithUserID attaches the caller's user id. Adapters forward it as X-User-ID or
// x-user-id gRPC metadata.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	return userID, ok && userID != ""
}

// NewFromConfig builds all four adapters. The returned close function releases the
// gRPC connection.
func NewFromConfig(cfg config.BackendConfig) (*Set, func() error, error) {
	httpClient := &http.Client{Timeout: cfg.GetBackendTimeout() + time.Second}

	grpcClient, err := NewGRPCClient(cfg.GetGrpcTarget(), cfg.GetGrpcUpdateMethod())
	if err != nil {
		return nil, nil, errors.Wrap(err, "[backends.NewFromConfig] grpc")
	}

	return &Set{
		Creator: NewRESTClient(cfg.GetRestURL(), httpClient),
		Lister:  NewSOAPClient(cfg.GetSoapURL(), httpClient),
		Updater: grpcClient,
		Deleter: NewGraphQLClient(cfg.GetGraphQLURL(), httpClient),
	}, grpcClient.Close, nil
}
