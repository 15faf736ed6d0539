package sessions

import "context"

// Conn is a live client connection as seen by the gateway core.
type Conn interface {
	// ID is unique for the lifetime of the process.
	ID() string

	// Send writes v to the client as a single JSON message. Implementations must be
	// safe for concurrent use and honour ctx for the write deadline.
	Send(ctx context.Context, v any) error
}
