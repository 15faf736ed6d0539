// Command publisher sends one product event to the gateway's broker queue.
//
//	publisher -action update -payload '{"id":3,"name":"Lamp","price":12.5,"stock":4}'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/jrsteele09/go-product-gateway/events"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	c, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	brokerURL := flag.String("url", c.GetBrokerURL(), "AMQP broker URL")
	queue := flag.String("queue", c.GetBrokerQueue(), "durable queue name")
	action := flag.String("action", string(events.ActionUpdate), "event action: create, read_all, update or delete")
	payload := flag.String("payload", "{}", "JSON object merged into the event body")
	timeout := flag.Duration("timeout", 5*time.Second, "publish timeout")
	flag.Parse()

	fields := map[string]any{}
	if err := json.Unmarshal([]byte(*payload), &fields); err != nil {
		log.Fatal().Err(err).Msg("payload must be a JSON object")
	}

	publisher, err := events.NewPublisher(*brokerURL, *queue)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to broker")
	}
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ev := events.Event{Action: events.Action(*action), Payload: fields}
	if err := publisher.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Msg("publish failed")
		return
	}
	log.Info().Str("queue", *queue).Str("action", *action).Msg("event published")
}
