package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-product-gateway/auth"
	"github.com/jrsteele09/go-product-gateway/dispatch"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/jrsteele09/go-product-gateway/token"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	router     chi.Router
	config     config.Config
	auth       *auth.AuthorizationService
	dispatcher *dispatch.Dispatcher
	registry   *sessions.Registry
	tokens     *token.Manager
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

func New(config config.Config, authService *auth.AuthorizationService, dispatcher *dispatch.Dispatcher, registry *sessions.Registry, tokens *token.Manager) (*Server, error) {
	if authService == nil || dispatcher == nil || registry == nil || tokens == nil {
		return nil, pkgerrors.New("[server.New] auth service, dispatcher, registry and token manager are required")
	}

	s := &Server{
		env:        config.GetEnv(),
		router:     chi.NewRouter(),
		config:     config,
		auth:       authService,
		dispatcher: dispatcher,
		registry:   registry,
		tokens:     tokens,
		logger:     log.With().Str("component", "server").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		s.logger.Info().Msgf("[%s] %s", colourMethod(method), route)
		return nil
	})
}

// checkOrigin allows requests without an Origin header (non-browser clients)
// and any origin on the allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.config.GetAllowedOrigins()
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
