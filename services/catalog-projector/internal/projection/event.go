// Package projection folds catalog change events into a queryable table.
package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a message that can never be applied, however often it is redelivered.
var ErrMalformed = errors.New("malformed change event")

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

type Payload struct {
	ID          string  `json:"id"`
	Nom         *string `json:"nom,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Event is the change event as published by catalog-service.
type Event struct {
	EventID     string    `json:"eventId"`
	EntityKind  string    `json:"entityKind"`
	Operation   string    `json:"operation"`
	Action      string    `json:"action"`
	EntityID    string    `json:"entityId"`
	Payload     Payload   `json:"payload"`
	SequenceKey string    `json:"sequenceKey"`
	EmittedAt   time.Time `json:"emittedAt"`
}

func (e Event) Type() string {
	return e.EntityKind + "." + e.Operation
}

// Decode parses and checks a message value.
func Decode(value []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(value, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case evt.EntityKind == "":
		return Event{}, fmt.Errorf("%w: missing entityKind", ErrMalformed)
	case evt.EntityID == "":
		return Event{}, fmt.Errorf("%w: missing entityId", ErrMalformed)
	case evt.EmittedAt.IsZero():
		return Event{}, fmt.Errorf("%w: missing emittedAt", ErrMalformed)
	}
	switch evt.Operation {
	case OpCreated, OpUpdated:
		if evt.Payload.Nom == nil {
			return Event{}, fmt.Errorf("%w: %s without nom", ErrMalformed, evt.Operation)
		}
	case OpDeleted:
	default:
		return Event{}, fmt.Errorf("%w: unknown operation %q", ErrMalformed, evt.Operation)
	}
	return evt, nil
}
