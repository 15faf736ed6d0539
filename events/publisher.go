package events

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	pkgerrors "github.com/pkg/errors"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher writes persistent events to the queue the Subscriber reads.
type Publisher struct {
	ch      publishChannel
	closers []func() error
	queue   string
	nowFunc func() time.Time
}

// NewPublisher dials url and declares queue as durable.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[events.NewPublisher] dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, pkgerrors.Wrap(err, "[events.NewPublisher] channel")
	}
	if err := declareQueue(ch, queue); err != nil {
		conn.Close()
		return nil, pkgerrors.Wrap(err, "[events.NewPublisher] declare queue")
	}
	p := newPublisher(ch, queue)
	p.closers = append(p.closers, conn.Close)
	return p, nil
}

func newPublisher(ch publishChannel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue, closers: []func() error{ch.Close}, nowFunc: time.Now}
}

// Publish stamps ev with the current time when it has no origin timestamp.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if !ev.Action.valid() {
		return pkgerrors.Errorf("[Publisher.Publish] unknown action %q", ev.Action)
	}
	now := p.nowFunc()
	if ev.OriginTimestamp.IsZero() {
		ev.OriginTimestamp = now
	}
	body, err := ev.Encode()
	if err != nil {
		return pkgerrors.Wrap(err, "[Publisher.Publish] encode")
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	})
	return pkgerrors.Wrap(err, "[Publisher.Publish]")
}

func (p *Publisher) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
