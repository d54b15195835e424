package model

import (
	"time"

	"github.com/google/uuid"
)

// Operation is the mutation an event announces.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

func (o Operation) Valid() bool {
	return o == OpCreated || o == OpUpdated || o == OpDeleted
}

// Action is the legacy French name of the operation, kept on the message for
// older consumers.
func (o Operation) Action() string {
	switch o {
	case OpCreated:
		return "creation"
	case OpUpdated:
		return "modification"
	case OpDeleted:
		return "suppression"
	default:
		return ""
	}
}

// EntityPayload is the entity snapshot carried by an event. Deletions carry the id only.
type EntityPayload struct {
	ID          string  `json:"id"`
	Nom         *string `json:"nom,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ChangeEvent struct {
	EventID     string        `json:"eventId"`
	EntityKind  Kind          `json:"entityKind"`
	Operation   Operation     `json:"operation"`
	Action      string        `json:"action"`
	EntityID    string        `json:"entityId"`
	Payload     EntityPayload `json:"payload"`
	SequenceKey string        `json:"sequenceKey"`
	EmittedAt   time.Time     `json:"emittedAt"`
}

// NewChangeEvent builds the event describing op applied to e.
func NewChangeEvent(op Operation, e Entity, now time.Time) ChangeEvent {
	payload := EntityPayload{ID: e.ID}
	if op != OpDeleted {
		nom, desc := e.Nom, e.Description
		payload.Nom = &nom
		payload.Description = &desc
	}
	return ChangeEvent{
		EventID:     uuid.NewString(),
		EntityKind:  e.Kind,
		Operation:   op,
		Action:      op.Action(),
		EntityID:    e.ID,
		Payload:     payload,
		SequenceKey: e.ID,
		EmittedAt:   now.UTC(),
	}
}

// Type is the routing name of the event, e.g. "client.created".
func (e ChangeEvent) Type() string {
	return string(e.EntityKind) + "." + string(e.Operation)
}
