package errors

import (
	"errors"
	"fmt"
)

// Common error types for the gateway
var (
	// Token errors
	ErrMissingSecret = errors.New("signing secret is required")

	// Connection errors
	ErrConnectionNotFound = errors.New("connection not registered")
	ErrConnectionClosed   = errors.New("connection closed")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendResponse    = errors.New("unexpected backend response")

	// Broker errors
	ErrBrokerUnavailable = errors.New("broker unavailable")
	ErrUnknownEvent      = errors.New("unknown event action")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
