package oauth2

import "fmt"

// ErrorKind is the "error" member of an OAuth2-style error response.
type ErrorKind string

const (
	ErrInvalidRequest       ErrorKind = "invalid_request"
	ErrInvalidGrant         ErrorKind = "invalid_grant"
	ErrUnsupportedGrantType ErrorKind = "unsupported_grant_type"
	ErrAccessDenied         ErrorKind = "access_denied"
	ErrInvalidToken         ErrorKind = "invalid_token"
	ErrInsufficientScope    ErrorKind = "insufficient_scope"
	ErrServerError          ErrorKind = "server_error"
)

// Error is the typed error crossing the grant and dispatch boundaries.
// It marshals to {"error": ..., "error_description": ...}.
type Error struct {
	Kind        ErrorKind `json:"error"`
	Description string    `json:"error_description"`
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Is matches any *Error with the same Kind, so callers can test
// errors.Is(err, &oauth2.Error{Kind: oauth2.ErrInvalidGrant}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
