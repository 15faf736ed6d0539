package server

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-product-gateway/auth"
	"github.com/jrsteele09/go-product-gateway/backends"
	"github.com/jrsteele09/go-product-gateway/dispatch"
	"github.com/jrsteele09/go-product-gateway/events"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/jrsteele09/go-product-gateway/token"
	"github.com/jrsteele09/go-product-gateway/token/refresh"
	"github.com/rs/zerolog/log"
)

// Gateway is the fully wired process: the HTTP/WebSocket server and, when the
// broker is enabled, the event bridge.
type Gateway struct {
	Server   *Server
	Bridge   *events.Bridge // nil when broker.enabled is false
	Registry *sessions.Registry

	closers []func() error
}

// Close releases backend and store connections.
func (g *Gateway) Close() error {
	var result *multierror.Error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Bootstrap builds every component from cfg. On error, anything already
// opened is closed again.
func Bootstrap(ctx context.Context, cfg config.Config) (_ *Gateway, err error) {
	gw := &Gateway{}
	defer func() {
		if err != nil {
			_ = gw.Close()
		}
	}()

	settings, err := cfg.GetDirectory()
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] directory: %w", err)
	}
	directory, err := auth.NewDirectoryFromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] directory: %w", err)
	}
	log.Info().Int("users", len(settings.Users)).Int("clients", len(settings.Clients)).Msg("directory loaded")

	tokens, err := token.New(cfg.GetSecret(),
		token.WithIssuer(cfg.GetIssuer()),
		token.WithAudience(cfg.GetAudience()),
		token.WithTokenExpiry(cfg.GetAccessTokenExpiry(), cfg.GetRefreshTokenExpiry()),
	)
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] token manager: %w", err)
	}

	var authOptions []auth.AuthorizationServiceOption
	if cfg.GetRefreshPolicy() == config.RefreshPolicySingleUse {
		store, err := refreshStore(ctx, cfg, gw)
		if err != nil {
			return nil, err
		}
		authOptions = append(authOptions, auth.WithRefreshPolicy(auth.RefreshSingleUse, store))
	}

	gw.Registry = sessions.NewRegistry()
	authService, err := auth.NewAuthorizationService(directory, tokens, gw.Registry, authOptions...)
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] authorization service: %w", err)
	}

	set, closeBackends, err := backends.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] backends: %w", err)
	}
	gw.closers = append(gw.closers, closeBackends)

	dispatcher, err := dispatch.New(gw.Registry, tokens, *set, dispatch.WithTimeout(cfg.GetBackendTimeout()))
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] dispatcher: %w", err)
	}

	gw.Server, err = New(cfg, authService, dispatcher, gw.Registry, tokens)
	if err != nil {
		return nil, fmt.Errorf("[Bootstrap] server: %w", err)
	}

	if cfg.GetBrokerEnabled() {
		subscriber := events.NewSubscriber(cfg.GetBrokerURL(), cfg.GetBrokerQueue(),
			events.WithReconnect(cfg.GetReconnectStep(), cfg.GetReconnectMaxDelay(), cfg.GetReconnectMaxAttempts()),
		)
		gw.Bridge = events.NewBridge(gw.Registry, subscriber, events.WithSendTimeout(cfg.GetFanoutSendTimeout()))
	} else {
		log.Warn().Msg("broker disabled, live event push is off")
	}

	return gw, nil
}

func refreshStore(ctx context.Context, cfg config.Config, gw *Gateway) (refresh.Store, error) {
	switch cfg.GetRefreshStore() {
	case config.RefreshStoreRedis:
		client, err := refresh.NewRedisClient(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, fmt.Errorf("[Bootstrap] redis refresh store: %w", err)
		}
		gw.closers = append(gw.closers, client.Close)
		log.Info().Str("addr", cfg.GetRedisAddr()).Msg("single-use refresh tokens tracked in redis")
		return refresh.NewRedisStore(client), nil
	default:
		return refresh.NewInMemoryStore(), nil
	}
}
