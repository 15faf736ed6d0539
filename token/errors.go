package token

import "fmt"

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonExpired       Reason = "expired"
	ReasonMalformed     Reason = "malformed"
	ReasonWrongAudience Reason = "wrong_audience"
	ReasonWrongIssuer   Reason = "wrong_issuer"
	ReasonWrongType     Reason = "wrong_type"
)

// RejectedError is returned by Manager.Verify for any token that must not be trusted.
type RejectedError struct {
	Reason Reason
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token rejected: %s", e.Reason)
	}
	return fmt.Sprintf("token rejected: %s: %v", e.Reason, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}
