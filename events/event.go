package events

import (
	"encoding/json"
	"fmt"
	"time"

	gwerrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/jrsteele09/go-product-gateway/internal/utils"
)

// Action is the product operation an upstream service reports.
type Action string

const (
	ActionCreate  Action = "create"
	ActionReadAll Action = "read_all"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
)

// EnvelopeType tags every event pushed to clients.
const EnvelopeType = "product_event"

const (
	actionKey    = "action"
	timestampKey = "origin_timestamp"
)

func (a Action) valid() bool {
	switch a {
	case ActionCreate, ActionReadAll, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Event is one message consumed from the broker. It lives only until fan-out completes.
type Event struct {
	Action          Action
	Payload         map[string]any
	OriginTimestamp time.Time
}

// Envelope is the JSON pushed to authenticated connections.
type Envelope struct {
	Type            string         `json:"type"`
	Action          Action         `json:"action"`
	Data            map[string]any `json:"data"`
	OriginTimestamp *int64         `json:"origin_timestamp,omitempty"`
}

// Decode parses a broker message of the form {"action": ..., ...payload}.
func Decode(body []byte) (Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", gwerrors.ErrUnknownEvent, err)
	}
	name, _ := raw[actionKey].(string)
	action := Action(name)
	if !action.valid() {
		return Event{}, fmt.Errorf("%w: action %q", gwerrors.ErrUnknownEvent, name)
	}

	ev := Event{Action: action, Payload: make(map[string]any, len(raw))}
	if ts, ok := utils.UnixTime(raw[timestampKey]); ok {
		ev.OriginTimestamp = ts
	}
	for k, v := range raw {
		if k == actionKey || k == timestampKey {
			continue
		}
		ev.Payload[k] = v
	}
	return ev, nil
}

// Encode is the inverse of Decode.
func (e Event) Encode() ([]byte, error) {
	body := make(map[string]any, len(e.Payload)+2)
	for k, v := range e.Payload {
		body[k] = v
	}
	body[actionKey] = e.Action
	if !e.OriginTimestamp.IsZero() {
		body[timestampKey] = e.OriginTimestamp.Unix()
	}
	return json.Marshal(body)
}

func (e Event) Envelope() Envelope {
	env := Envelope{Type: EnvelopeType, Action: e.Action, Data: e.Payload}
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	if !e.OriginTimestamp.IsZero() {
		ts := e.OriginTimestamp.Unix()
		env.OriginTimestamp = &ts
	}
	return env
}
