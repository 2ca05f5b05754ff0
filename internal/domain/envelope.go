package domain

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire-level unit delivered to clients. Every outbound
// envelope is validated against its declared schema version before send;
// a frame that fails validation is dropped and counted, never sent malformed.
type Envelope struct {
	Type          EnvelopeType   `json:"type"`
	Event         EnvelopeEvent  `json:"event"`
	ThreadID      uuid.UUID      `json:"threadId"`
	SchemaVersion string         `json:"schemaVersion"`
	Meta          EnvelopeMeta   `json:"meta"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// EnvelopeMeta carries delivery metadata
type EnvelopeMeta struct {
	InReplyTo *uuid.UUID `json:"inReplyTo"`
	TS        time.Time  `json:"ts"`
	TraceID   string     `json:"traceId"`
}

// NewEnvelope builds an envelope for an event, deriving the frame type
func NewEnvelope(event EnvelopeEvent, threadID uuid.UUID, schemaVersion, traceID string, payload map[string]any) Envelope {
	return Envelope{
		Type:          TypeForEvent(event),
		Event:         event,
		ThreadID:      threadID,
		SchemaVersion: schemaVersion,
		Meta: EnvelopeMeta{
			TS:      time.Now().UTC(),
			TraceID: traceID,
		},
		Payload: payload,
	}
}

// InReplyTo sets the turn this envelope answers
func (e Envelope) InReplyTo(turnID uuid.UUID) Envelope {
	e.Meta.InReplyTo = &turnID
	return e
}
