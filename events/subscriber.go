package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gwerrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/jrsteele09/go-product-gateway/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultReconnectStep  = 5 * time.Second
	defaultReconnectMax   = 30 * time.Second
	defaultReconnectTries = 10
)

// Subscriber consumes one event at a time from a durable queue and reconnects
// on connection loss until its attempt budget runs out.
type Subscriber struct {
	url         string
	queue       string
	dial        Dialer
	step        time.Duration
	maxDelay    time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

type SubscriberOption func(*Subscriber)

func WithDialer(dial Dialer) SubscriberOption {
	return func(s *Subscriber) {
		s.dial = dial
	}
}

// WithReconnect sets the linear delay step, the delay cap and the attempt budget.
// A non-positive budget keeps the default; the budget is always finite.
func WithReconnect(step, maxDelay time.Duration, maxAttempts int) SubscriberOption {
	return func(s *Subscriber) {
		s.step = step
		s.maxDelay = maxDelay
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

func NewSubscriber(url, queue string, options ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		url:         url,
		queue:       queue,
		dial:        DialAMQP,
		step:        defaultReconnectStep,
		maxDelay:    defaultReconnectMax,
		maxAttempts: defaultReconnectTries,
		logger:      log.With().Str("component", "subscriber").Str("queue", queue).Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run delivers events to out until ctx is cancelled (returns nil) or the
// reconnect budget is exhausted (returns ErrBrokerUnavailable).
func (s *Subscriber) Run(ctx context.Context, out chan<- Event) error {
	linear := newLinearBackOff(s.step, s.maxDelay, s.maxAttempts)
	bo := backoff.WithContext(linear, ctx)

	for {
		connected, err := s.consume(ctx, out)
		metrics.BrokerConnected.Set(0)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			bo.Reset()
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			s.logger.Error().Err(err).Int("attempts", linear.Attempt()).Msg("giving up on broker, live event push disabled")
			return fmt.Errorf("%w: %w", gwerrors.ErrBrokerUnavailable, err)
		}
		metrics.BrokerReconnectAttempts.Inc()
		s.logger.Warn().Err(err).Int("attempt", linear.Attempt()).Dur("delay", next).Msg("broker connection lost, reconnecting")

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// consume runs one connection's lifetime. connected reports whether the
// subscription was established before the failure.
func (s *Subscriber) consume(ctx context.Context, out chan<- Event) (connected bool, err error) {
	conn, err := s.dial(s.url)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return false, fmt.Errorf("set prefetch: %w", err)
	}
	if err := declareQueue(ch, s.queue); err != nil {
		return false, fmt.Errorf("declare queue: %w", err)
	}
	deliveries, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("consume: %w", err)
	}

	metrics.BrokerConnected.Set(1)
	s.logger.Info().Msg("subscribed to broker")

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				return true, fmt.Errorf("%w: %s", gwerrors.ErrConnectionClosed, amqpErr.Error())
			}
			return true, gwerrors.ErrConnectionClosed
		case d, ok := <-deliveries:
			if !ok {
				return true, gwerrors.ErrConnectionClosed
			}
			s.handle(ctx, d, out)
		}
	}
}

// handle hands a delivery to out and acks only once the hand-off succeeded.
func (s *Subscriber) handle(ctx context.Context, d amqp.Delivery, out chan<- Event) {
	ev, err := Decode(d.Body)
	if err != nil {
		metrics.EventsReceived.WithLabelValues(metrics.OutcomeRejected).Inc()
		s.logger.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("rejecting event")
		if err := d.Nack(false, false); err != nil {
			s.logger.Error().Err(err).Msg("nack failed")
		}
		return
	}

	select {
	case out <- ev:
		metrics.EventsReceived.WithLabelValues(metrics.OutcomeAccepted).Inc()
		if err := d.Ack(false); err != nil {
			s.logger.Error().Err(err).Msg("ack failed")
		}
	case <-ctx.Done():
		// Not handed off: let the broker redeliver it.
		_ = d.Nack(false, true)
	}
}
