package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-product-gateway/dispatch"
	"github.com/jrsteele09/go-product-gateway/internal/metrics"
	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/rs/zerolog"
)

// legacyAuthAction is the login message of older desktop clients:
// {"action":"auth","data":{"username":...,"password":...}}.
const legacyAuthAction = "auth"

type connectedMessage struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connection_id"`
}

// inboundMessage is the union of grant and action messages. A message with a
// grant_type is a grant; otherwise it must name an action.
type inboundMessage struct {
	GrantType string          `json:"grant_type"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
}

type legacyCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Scope    string `json:"scope"`
	ClientID string `json:"client_id"`
}

// WebSocket upgrades the request and serves the connection until it closes.
// Grants run inline so they apply in order; each action runs in its own goroutine.
func (s *Server) WebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			s.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		ws.SetReadLimit(s.config.GetReadLimit())

		conn := newWSConn(ws, s.config.GetWriteTimeout())
		logger := s.logger.With().Str("connection_id", conn.ID()).Logger()

		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		var inflight sync.WaitGroup

		s.registry.Register(conn)
		metrics.ActiveConnections.Inc()
		logger.Info().Str("remote_addr", r.RemoteAddr).Msg("connection opened")
		defer func() {
			s.registry.Unregister(conn)
			metrics.ActiveConnections.Dec()
			cancel()
			inflight.Wait()
			_ = conn.Close()
			logger.Info().Msg("connection closed")
		}()

		if err := conn.Send(ctx, connectedMessage{Status: "connected", ConnectionID: conn.ID()}); err != nil {
			logger.Debug().Err(err).Msg("failed to send greeting")
			return
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug().Err(err).Msg("read failed")
				}
				return
			}
			s.handleMessage(ctx, conn, data, &inflight, logger)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *wsConn, data []byte, inflight *sync.WaitGroup, logger zerolog.Logger) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(ctx, conn, oauth2.NewError(oauth2.ErrInvalidRequest, "message is not valid JSON"), logger)
		return
	}

	switch {
	case msg.GrantType != "":
		var req oauth2.TokenRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(ctx, conn, oauth2.NewError(oauth2.ErrInvalidRequest, "malformed grant request"), logger)
			return
		}
		s.grant(ctx, conn, req, logger)

	case msg.Action == legacyAuthAction:
		var creds legacyCredentials
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &creds); err != nil {
				s.reply(ctx, conn, oauth2.NewError(oauth2.ErrInvalidRequest, "malformed auth data"), logger)
				return
			}
		}
		s.grant(ctx, conn, oauth2.TokenRequest{
			GrantType: oauth2.PasswordGrant,
			Username:  creds.Username,
			Password:  creds.Password,
			Scope:     creds.Scope,
			ClientID:  creds.ClientID,
		}, logger)

	case msg.Action != "":
		req := dispatch.Request{Action: msg.Action, Data: msg.Data}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.reply(ctx, conn, s.dispatcher.Dispatch(ctx, conn, req), logger)
		}()

	default:
		s.reply(ctx, conn, oauth2.NewError(oauth2.ErrInvalidRequest, "message must carry grant_type or action"), logger)
	}
}

func (s *Server) grant(ctx context.Context, conn *wsConn, req oauth2.TokenRequest, logger zerolog.Logger) {
	resp, err := s.auth.GrantForConnection(ctx, conn, req)
	if err != nil {
		oerr := clientError(err)
		if oerr.Kind == oauth2.ErrServerError {
			logger.Error().Err(err).Msg("grant failed")
		}
		s.reply(ctx, conn, oerr, logger)
		return
	}
	s.reply(ctx, conn, resp, logger)
}

func (s *Server) reply(ctx context.Context, conn *wsConn, v any, logger zerolog.Logger) {
	if err := conn.Send(ctx, v); err != nil {
		logger.Debug().Err(err).Msg("send failed")
	}
}
