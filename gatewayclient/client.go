// Package gatewayclient is a Go client for the product gateway. It obtains a
// token pair over HTTP, opens the WebSocket and authenticates it with the
// refresh token, then runs actions and streams product events.
package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-product-gateway/dispatch"
	"github.com/jrsteele09/go-product-gateway/events"
	gwoauth2 "github.com/jrsteele09/go-product-gateway/oauth2"
	"golang.org/x/oauth2"
)

const (
	tokenPath     = "/oauth2/token"
	websocketPath = "/ws"
	eventBuffer   = 64
)

var ErrClosed = errors.New("gateway connection closed")

// Client holds one authenticated gateway connection. Do calls are serialized
// because the gateway does not correlate responses to requests.
type Client struct {
	ws           *websocket.Conn
	connectionID string
	token        *oauth2.Token
	scope        string

	writeMu sync.Mutex
	doMu    sync.Mutex

	// respMu guards abandoned: responses still owed to Do calls that gave up.
	respMu    sync.Mutex
	abandoned int

	responses chan dispatch.Response
	events    chan events.Envelope
	done      chan struct{}
	readErr   error
	closeOnce sync.Once
}

type options struct {
	clientID string
	scopes   []string
	dialer   *websocket.Dialer
}

type Option func(*options)

func WithClientID(clientID string) Option {
	return func(o *options) {
		o.clientID = clientID
	}
}

func WithScopes(scopes ...string) Option {
	return func(o *options) {
		o.scopes = scopes
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// Dial logs in at baseURL (http or https) and returns an authenticated connection.
func Dial(ctx context.Context, baseURL, username, password string, opts ...Option) (*Client, error) {
	o := options{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	conf := &oauth2.Config{
		ClientID: o.clientID,
		Endpoint: oauth2.Endpoint{TokenURL: baseURL + tokenPath},
		Scopes:   o.scopes,
	}
	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, errors.New("password grant returned no refresh token")
	}

	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	ws, _, err := o.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Client{
		ws:        ws,
		token:     tok,
		responses: make(chan dispatch.Response, 1),
		events:    make(chan events.Envelope, eventBuffer),
		done:      make(chan struct{}),
	}
	if err := c.handshake(ctx, tok.RefreshToken, strings.Join(o.scopes, " ")); err != nil {
		_ = ws.Close()
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + websocketPath
	return u.String(), nil
}

type greeting struct {
	Status       string `json:"status"`
	ConnectionID string `json:"connection_id"`
}

type grantReply struct {
	gwoauth2.TokenResponse
	Error            gwoauth2.ErrorKind `json:"error"`
	ErrorDescription string             `json:"error_description"`
}

// handshake reads the greeting and binds the connection with a refresh_token grant.
func (c *Client) handshake(ctx context.Context, refreshToken, scope string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
		defer c.ws.SetReadDeadline(time.Time{})
	}

	var g greeting
	if err := c.ws.ReadJSON(&g); err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	c.connectionID = g.ConnectionID

	req := gwoauth2.TokenRequest{GrantType: gwoauth2.RefreshTokenGrant, RefreshToken: refreshToken, Scope: scope}
	if err := c.write(req); err != nil {
		return fmt.Errorf("send grant: %w", err)
	}
	var reply grantReply
	if err := c.ws.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read grant reply: %w", err)
	}
	if reply.Error != "" {
		return &gwoauth2.Error{Kind: reply.Error, Description: reply.ErrorDescription}
	}
	c.scope = reply.Scope
	return nil
}

func (c *Client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		var kind struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &kind) != nil {
			continue
		}
		if kind.Type == events.EnvelopeType {
			var env events.Envelope
			if json.Unmarshal(data, &env) == nil {
				select {
				case c.events <- env:
				default: // slow consumer, drop
				}
			}
			continue
		}
		var resp dispatch.Response
		if json.Unmarshal(data, &resp) == nil {
			c.deliver(resp)
		}
	}
}

func (c *Client) deliver(resp dispatch.Response) {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	if c.abandoned > 0 {
		c.abandoned--
		return
	}
	select {
	case c.responses <- resp:
	default: // unsolicited, nobody is waiting
	}
}

// abandon is called when Do stops waiting. A response that already arrived is
// discarded, otherwise the next one to arrive is.
func (c *Client) abandon() {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	select {
	case <-c.responses:
	default:
		c.abandoned++
	}
}

// ConnectionID is the id the gateway assigned to this connection.
func (c *Client) ConnectionID() string { return c.connectionID }

// Scope is the space-delimited scope granted to the connection.
func (c *Client) Scope() string { return c.scope }

// Token is the token pair obtained from the HTTP token endpoint.
func (c *Client) Token() *oauth2.Token { return c.token }

// Do runs one action and waits for its response. A response with Success
// false is returned as data, not as an error.
func (c *Client) Do(ctx context.Context, action string, data any) (*dispatch.Response, error) {
	c.doMu.Lock()
	defer c.doMu.Unlock()

	msg := map[string]any{"action": action}
	if data != nil {
		msg["data"] = data
	}
	if err := c.write(msg); err != nil {
		return nil, fmt.Errorf("send %s: %w", action, err)
	}

	select {
	case resp := <-c.responses:
		return &resp, nil
	case <-c.done:
		return nil, c.closedErr()
	case <-ctx.Done():
		c.abandon()
		return nil, ctx.Err()
	}
}

// Events streams product events. The channel is never closed; use Done.
func (c *Client) Events() <-chan events.Envelope {
	return c.events
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) closedErr() error {
	if c.readErr != nil {
		return fmt.Errorf("%w: %w", ErrClosed, c.readErr)
	}
	return ErrClosed
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
