package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-product-gateway/events"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	id   string
	fail bool

	mu   sync.Mutex
	sent []any
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Send(_ context.Context, v any) error {
	if c.fail {
		return errors.New("socket closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *recordingConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

type blockingConn struct {
	id string
}

func (c blockingConn) ID() string { return c.id }

func (c blockingConn) Send(ctx context.Context, _ any) error {
	<-ctx.Done()
	return ctx.Err()
}

func authenticate(t *testing.T, r *sessions.Registry, conn sessions.Conn) {
	t.Helper()
	r.Register(conn)
	require.NoError(t, r.SetSession(conn, sessions.Session{Authenticated: true}))
}

func TestBroadcastReachesOnlyAuthenticated(t *testing.T) {
	registry := sessions.NewRegistry()
	healthy := &recordingConn{id: "a"}
	broken := &recordingConn{id: "b", fail: true}
	anonymous := &recordingConn{id: "c"}
	authenticate(t, registry, healthy)
	authenticate(t, registry, broken)
	registry.Register(anonymous)

	bridge := events.NewBridge(registry, nil)
	ev := events.Event{Action: events.ActionCreate, Payload: map[string]any{"id": float64(1)}}
	delivered := bridge.Broadcast(context.Background(), ev)

	require.Equal(t, 1, delivered)
	require.Equal(t, []any{ev.Envelope()}, healthy.messages())
	require.Empty(t, anonymous.messages())
}

func TestBroadcastSlowRecipientDoesNotBlockOthers(t *testing.T) {
	registry := sessions.NewRegistry()
	fast := &recordingConn{id: "fast"}
	authenticate(t, registry, fast)
	authenticate(t, registry, blockingConn{id: "slow"})

	bridge := events.NewBridge(registry, nil, events.WithSendTimeout(20*time.Millisecond))
	start := time.Now()
	delivered := bridge.Broadcast(context.Background(), events.Event{Action: events.ActionDelete})

	require.Equal(t, 1, delivered)
	require.Len(t, fast.messages(), 1)
	require.Less(t, time.Since(start), time.Second)
}

type sliceSource struct {
	events []events.Event
	err    error
}

func (s sliceSource) Run(ctx context.Context, out chan<- events.Event) error {
	for _, ev := range s.events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	return s.err
}

func TestBridgeRunSurvivesSourceFailure(t *testing.T) {
	registry := sessions.NewRegistry()
	conn := &recordingConn{id: "a"}
	authenticate(t, registry, conn)

	source := sliceSource{
		events: []events.Event{{Action: events.ActionCreate}, {Action: events.ActionUpdate}},
		err:    errors.New("broker unavailable"),
	}
	err := events.NewBridge(registry, source).Run(context.Background())
	require.NoError(t, err)

	msgs := conn.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, events.ActionCreate, msgs[0].(events.Envelope).Action)
	require.Equal(t, events.ActionUpdate, msgs[1].(events.Envelope).Action)
}
