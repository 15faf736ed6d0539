package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-product-gateway/auth"
	"github.com/jrsteele09/go-product-gateway/backends"
	"github.com/jrsteele09/go-product-gateway/dispatch"
	"github.com/jrsteele09/go-product-gateway/events"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/server"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/jrsteele09/go-product-gateway/token"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubBackend struct{}

func (stubBackend) Create(context.Context, backends.Product) (*backends.CreateResult, error) {
	return &backends.CreateResult{Message: "created", StorageID: "id-1"}, nil
}

func (stubBackend) ListAll(context.Context) ([]backends.Product, error) {
	return []backends.Product{{ID: 1, Name: "Widget", Price: 2.5, Stock: 10}}, nil
}

func (stubBackend) Update(context.Context, int, backends.Product) (*backends.MutationResult, error) {
	return &backends.MutationResult{Message: "updated"}, nil
}

func (stubBackend) Delete(context.Context, int) (*backends.MutationResult, error) {
	return &backends.MutationResult{Message: "deleted"}, nil
}

type fixture struct {
	httpServer *httptest.Server
	registry   *sessions.Registry
	tokens     *token.Manager
}

func setup(t *testing.T, overrides ...func(v *viper.Viper)) *fixture {
	t.Helper()

	v := viper.New()
	v.Set("oauth.secret", "test-secret")
	for _, override := range overrides {
		override(v)
	}
	cfg := config.FromViper(v)

	settings, err := cfg.GetDirectory()
	require.NoError(t, err)
	dir, err := auth.NewDirectoryFromSettings(settings)
	require.NoError(t, err)
	tokens, err := token.New("test-secret")
	require.NoError(t, err)
	registry := sessions.NewRegistry()
	authService, err := auth.NewAuthorizationService(dir, tokens, registry)
	require.NoError(t, err)
	b := stubBackend{}
	dispatcher, err := dispatch.New(registry, tokens, backends.Set{Creator: b, Lister: b, Updater: b, Deleter: b})
	require.NoError(t, err)

	s, err := server.New(cfg, authService, dispatcher, registry, tokens)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return &fixture{httpServer: ts, registry: registry, tokens: tokens}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.httpServer.URL, "http") + server.RouteWebSocket
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	greeting := readJSON(t, ws)
	require.Equal(t, "connected", greeting["status"])
	require.NotEmpty(t, greeting["connection_id"])
	return ws
}

func readJSON(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, ws *websocket.Conn, v any) map[string]any {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
	return readJSON(t, ws)
}

func login(t *testing.T, ws *websocket.Conn, username, password string) map[string]any {
	t.Helper()
	resp := send(t, ws, map[string]any{"grant_type": "password", "username": username, "password": password})
	require.NotEmpty(t, resp["access_token"], resp)
	return resp
}

func TestWebSocketGrantAndActions(t *testing.T) {
	f := setup(t)
	ws := f.dial(t)

	t.Run("action before grant is denied", func(t *testing.T) {
		resp := send(t, ws, map[string]any{"action": "list_soap"})
		require.Equal(t, false, resp["success"])
		require.Equal(t, "access_denied", resp["error"])
	})

	t.Run("failed grant", func(t *testing.T) {
		resp := send(t, ws, map[string]any{"grant_type": "password", "username": "admin", "password": "nope"})
		require.Equal(t, "invalid_grant", resp["error"])
	})

	t.Run("password grant", func(t *testing.T) {
		resp := login(t, ws, "readonly", "readonly123")
		require.Equal(t, "Bearer", resp["token_type"])
		require.Equal(t, float64(86400), resp["expires_in"])
		require.Equal(t, "read_product", resp["scope"])
		require.Equal(t, "readonly_user", resp["user_id"])
		require.NotEmpty(t, resp["refresh_token"])
	})

	t.Run("permitted action", func(t *testing.T) {
		resp := send(t, ws, map[string]any{"action": "list_soap"})
		require.Equal(t, true, resp["success"], resp)
		require.Len(t, resp["data"], 1)
	})

	t.Run("insufficient scope keeps session", func(t *testing.T) {
		resp := send(t, ws, map[string]any{"action": "create_rest", "data": map[string]any{"id": 1, "name": "x"}})
		require.Equal(t, "insufficient_scope", resp["error"])
		require.Equal(t, "create_product", resp["required_scope"])

		resp = send(t, ws, map[string]any{"action": "list_soap"})
		require.Equal(t, true, resp["success"])
	})
}

func TestWebSocketRefreshGrant(t *testing.T) {
	f := setup(t)
	ws := f.dial(t)
	first := login(t, ws, "admin", "admin123")

	other := f.dial(t)
	resp := send(t, other, map[string]any{"grant_type": "refresh_token", "refresh_token": first["refresh_token"]})
	require.NotEmpty(t, resp["access_token"], resp)
	require.Equal(t, "admin_user", resp["user_id"])

	resp = send(t, other, map[string]any{"action": "delete_graphql", "data": map[string]any{"id": 3}})
	require.Equal(t, true, resp["success"], resp)
}

func TestWebSocketMalformedMessages(t *testing.T) {
	f := setup(t)
	ws := f.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := readJSON(t, ws)
	require.Equal(t, "invalid_request", resp["error"])

	resp = send(t, ws, map[string]any{"hello": "world"})
	require.Equal(t, "invalid_request", resp["error"])

	resp = send(t, ws, map[string]any{"grant_type": "client_credentials"})
	require.Equal(t, "unsupported_grant_type", resp["error"])

	// The connection survives all of the above.
	login(t, ws, "user", "user123")
}

func TestWebSocketLegacyAuth(t *testing.T) {
	f := setup(t)
	ws := f.dial(t)

	resp := send(t, ws, map[string]any{"action": "auth", "data": map[string]any{"username": "user", "password": "user123"}})
	require.NotEmpty(t, resp["access_token"], resp)
	require.Equal(t, "create_product read_product update_product", resp["scope"])
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	f := setup(t)
	ws := f.dial(t)
	login(t, ws, "admin", "admin123")
	require.Equal(t, 1, f.registry.Count())

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventFanOutOverWebSocket(t *testing.T) {
	f := setup(t)
	a := f.dial(t)
	b := f.dial(t)
	anonymous := f.dial(t)
	login(t, a, "admin", "admin123")
	login(t, b, "readonly", "readonly123")

	bridge := events.NewBridge(f.registry, nil)
	delivered := bridge.Broadcast(context.Background(), events.Event{
		Action:  events.ActionUpdate,
		Payload: map[string]any{"id": float64(8)},
	})
	require.Equal(t, 2, delivered)

	for _, ws := range []*websocket.Conn{a, b} {
		msg := readJSON(t, ws)
		require.Equal(t, "product_event", msg["type"])
		require.Equal(t, "update", msg["action"])
		require.Equal(t, map[string]any{"id": float64(8)}, msg["data"])
	}

	require.NoError(t, anonymous.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := anonymous.ReadMessage()
	require.Error(t, err)
}

func TestTokenEndpoint(t *testing.T) {
	f := setup(t)

	t.Run("password credentials", func(t *testing.T) {
		conf := &oauth2.Config{
			ClientID: "desktop-client",
			Endpoint: oauth2.Endpoint{TokenURL: f.httpServer.URL + server.RouteOAuth2Token},
			Scopes:   []string{"read_product", "delete_product"},
		}
		tok, err := conf.PasswordCredentialsToken(context.Background(), "admin", "admin123")
		require.NoError(t, err)
		require.NotEmpty(t, tok.AccessToken)
		require.NotEmpty(t, tok.RefreshToken)
		require.Equal(t, "Bearer", tok.TokenType)
		require.Equal(t, "delete_product read_product", tok.Extra("scope"))
	})

	t.Run("rejected grant", func(t *testing.T) {
		resp, err := http.PostForm(f.httpServer.URL+server.RouteOAuth2Token, url.Values{
			"grant_type": {"password"},
			"username":   {"admin"},
			"password":   {"wrong"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "invalid_grant", body["error"])
	})

	t.Run("token is not bound to a connection", func(t *testing.T) {
		resp, err := http.PostForm(f.httpServer.URL+server.RouteOAuth2Token, url.Values{
			"grant_type": {"password"},
			"username":   {"user"},
			"password":   {"user123"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, f.registry.ListAuthenticated())
	})
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t)

	resp, err := http.Get(f.httpServer.URL + server.RouteHealth)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "ok", health["status"])

	metricsResp, err := http.Get(f.httpServer.URL + server.RouteMetrics)
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestOriginCheck(t *testing.T) {
	f := setup(t, func(v *viper.Viper) {
		v.Set("websocket.allowed_origins", []string{"https://app.example.com"})
	})
	wsURL := "ws" + strings.TrimPrefix(f.httpServer.URL, "http") + server.RouteWebSocket

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://app.example.com"}})
	require.NoError(t, err)
	_ = ws.Close()

	// Non-browser clients send no Origin.
	ws, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	_ = ws.Close()
}

func TestUserInfo(t *testing.T) {
	f := setup(t)
	access, err := f.tokens.IssueAccess(token.Identity{UserID: "admin_user", Email: "admin@example.com", Roles: []string{"admin"}},
		[]string{"read_product", "update_product"})
	require.NoError(t, err)

	get := func(authorization string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, f.httpServer.URL+server.RouteUserInfo, nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := get("Bearer " + access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, "admin_user", info["sub"])
	require.Equal(t, "read_product update_product", info["scope"])

	refreshToken, err := f.tokens.IssueRefresh(token.Identity{UserID: "admin_user"})
	require.NoError(t, err)
	for name, header := range map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic abc",
		"refresh token": "Bearer " + refreshToken,
		"garbage":       "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			resp := get(header)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
		})
	}
}
