// Command gatewayctl is a headless gateway client. It logs in, then either
// runs one action and prints the response or tails product events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/go-product-gateway/gatewayclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	url      string
	username string
	password string
	clientID string
	scope    string
	action   string
	data     string
	tail     bool
	timeout  time.Duration
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var o options
	flag.StringVar(&o.url, "url", "http://localhost:6789", "gateway base URL")
	flag.StringVar(&o.username, "user", "admin", "username")
	flag.StringVar(&o.password, "password", os.Getenv("GATEWAY_PASSWORD"), "password (or $GATEWAY_PASSWORD)")
	flag.StringVar(&o.clientID, "client-id", "desktop-client", "client id")
	flag.StringVar(&o.scope, "scope", "", "space-delimited scopes to request")
	flag.StringVar(&o.action, "action", "list_soap", "action to run: create_rest, list_soap, update_grpc, delete_graphql")
	flag.StringVar(&o.data, "data", "", "JSON payload for the action")
	flag.BoolVar(&o.tail, "tail", false, "print product events until interrupted instead of running an action")
	flag.DurationVar(&o.timeout, "timeout", 15*time.Second, "login and action timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal().Err(err).Msg("gatewayctl")
	}
}

func run(ctx context.Context, o options) error {
	if o.password == "" {
		return errors.New("a password is required")
	}

	loginCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	client, err := gatewayclient.Dial(loginCtx, o.url, o.username, o.password,
		gatewayclient.WithClientID(o.clientID),
		gatewayclient.WithScopes(strings.Fields(o.scope)...),
	)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Info().Str("connection_id", client.ConnectionID()).Str("scope", client.Scope()).Msg("authenticated")

	if o.tail {
		return tail(ctx, client)
	}

	var data any
	if o.data != "" {
		if err := json.Unmarshal([]byte(o.data), &data); err != nil {
			return fmt.Errorf("-data is not valid JSON: %w", err)
		}
	}
	actionCtx, cancelAction := context.WithTimeout(ctx, o.timeout)
	defer cancelAction()
	resp, err := client.Do(actionCtx, o.action, data)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func tail(ctx context.Context, client *gatewayclient.Client) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return gatewayclient.ErrClosed
		case ev := <-client.Events():
			if err := printJSON(ev); err != nil {
				return err
			}
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
