package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-product-gateway/internal/metrics"
)

func (s *Server) initRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RecoverMiddleware)
	r.Use(s.LoggingMiddleware)

	r.Get(RouteWebSocket, s.WebSocket())
	r.Get(RouteHealth, s.Health())
	r.Handle(RouteMetrics, metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.CorsMiddleware)
		r.Post(RouteOAuth2Token, s.Token())
		r.Options(RouteOAuth2Token, func(w http.ResponseWriter, _ *http.Request) {})
	})

	r.With(s.RequireAuth).Get(RouteUserInfo, s.UserInfo())
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Connections: s.registry.Count()})
	}
}
