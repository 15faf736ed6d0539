package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
)

// wsConn is a sessions.Conn over a gorilla connection. Writes from the reader
// loop, action goroutines and the event fan-out are serialized by mu.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newWSConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{id: uuid.NewString(), ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) ID() string {
	return c.id
}

// Send writes v as one JSON text frame. The write deadline is the earlier of
// the configured write timeout and the ctx deadline.
func (c *wsConn) Send(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperrors.ErrConnectionClosed
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// Close sends a close frame (best effort) and releases the socket. Later
// sends fail with ErrConnectionClosed.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}
