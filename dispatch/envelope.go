package dispatch

import (
	"encoding/json"

	"github.com/jrsteele09/go-product-gateway/oauth2"
)

// Request is an inbound action message.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the normalised reply to every action, successful or not.
type Response struct {
	Action           string `json:"action"`
	Success          bool   `json:"success"`
	Data             any    `json:"data,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequiredScope    string `json:"required_scope,omitempty"`
}

func success(action string, data any) Response {
	return Response{Action: action, Success: true, Data: data}
}

func failure(action string, kind oauth2.ErrorKind, description string) Response {
	return Response{Action: action, Error: string(kind), ErrorDescription: description}
}

// backendFailure reports an adapter error as data: the error text goes in "error".
func backendFailure(action string, err error) Response {
	return Response{Action: action, Error: err.Error()}
}
