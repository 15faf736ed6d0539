package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-product-gateway/internal/metrics"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultSendTimeout = 5 * time.Second

// Source produces events until ctx is done or it can no longer produce any.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// Bridge pushes every event from a Source to all authenticated connections.
type Bridge struct {
	registry    *sessions.Registry
	source      Source
	sendTimeout time.Duration
	logger      zerolog.Logger
}

type BridgeOption func(*Bridge)

func WithSendTimeout(timeout time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.sendTimeout = timeout
	}
}

func NewBridge(registry *sessions.Registry, source Source, options ...BridgeOption) *Bridge {
	b := &Bridge{
		registry:    registry,
		source:      source,
		sendTimeout: defaultSendTimeout,
		logger:      log.With().Str("component", "bridge").Logger(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Run blocks until ctx is cancelled or the source stops. A source failure is
// logged, not returned, so request handling is never torn down with it.
func (b *Bridge) Run(ctx context.Context) error {
	ch := make(chan Event)

	var g errgroup.Group
	g.Go(func() error {
		defer close(ch)
		return b.source.Run(ctx, ch)
	})
	g.Go(func() error {
		for ev := range ch {
			b.Broadcast(ctx, ev)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error().Err(err).Msg("event bridge stopped")
	}
	return nil
}

// Broadcast sends ev to every authenticated connection concurrently and
// returns how many sends succeeded.
func (b *Bridge) Broadcast(ctx context.Context, ev Event) int {
	recipients := b.registry.ListAuthenticated()
	envelope := ev.Envelope()

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, conn := range recipients {
		wg.Add(1)
		go func(conn sessions.Conn) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
			defer cancel()
			if err := conn.Send(sendCtx, envelope); err != nil {
				metrics.EventDeliveries.WithLabelValues(metrics.OutcomeError).Inc()
				b.logger.Debug().Err(err).Str("connection_id", conn.ID()).Msg("event delivery failed")
				return
			}
			metrics.EventDeliveries.WithLabelValues(metrics.OutcomeSuccess).Inc()
			delivered.Add(1)
		}(conn)
	}
	wg.Wait()

	b.logger.Debug().Str("event_action", string(ev.Action)).Int("recipients", len(recipients)).Int64("delivered", delivered.Load()).Msg("event fanned out")
	return int(delivered.Load())
}
