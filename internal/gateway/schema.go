package gateway

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/easyislanders/concierge/internal/domain"
)

// payloadSchema describes the payload contract of one event under the
// current schema version. Unknown payload fields are rejected, not silently
// passed through.
type payloadSchema struct {
	required []string
	optional []string
}

var payloadSchemas = map[domain.EnvelopeEvent]payloadSchema{
	domain.EventAssistantMessage: {
		required: []string{"text"},
		optional: []string{"act", "listings", "followup"},
	},
	domain.EventTyping:     {},
	domain.EventTypingDone: {},
	domain.EventError: {
		required: []string{"text"},
		optional: []string{"code"},
	},
	domain.EventReady: {
		optional: []string{"queuedTurnId"},
	},
	domain.EventRehydration: {
		required: []string{"activeDomain", "currentIntent", "turnCount", "recentTurns"},
	},
}

// ValidateEnvelope checks an outbound envelope against its declared schema
// version before send
func ValidateEnvelope(env domain.Envelope, schemaVersion string) error {
	if env.SchemaVersion != schemaVersion {
		return fmt.Errorf("envelope schema version %q does not match %q", env.SchemaVersion, schemaVersion)
	}
	if !env.Event.IsValid() {
		return fmt.Errorf("unknown envelope event %q", env.Event)
	}
	if env.Type != domain.TypeForEvent(env.Event) {
		return fmt.Errorf("envelope type %q does not match event %q", env.Type, env.Event)
	}
	if env.ThreadID == uuid.Nil {
		return fmt.Errorf("envelope is missing thread id")
	}

	schema := payloadSchemas[env.Event]
	for _, field := range schema.required {
		if _, ok := env.Payload[field]; !ok {
			return fmt.Errorf("envelope payload for %q is missing required field %q", env.Event, field)
		}
	}
	for field := range env.Payload {
		if !schema.allows(field) {
			return fmt.Errorf("envelope payload for %q carries unknown field %q", env.Event, field)
		}
	}
	return nil
}

func (s payloadSchema) allows(field string) bool {
	for _, f := range s.required {
		if f == field {
			return true
		}
	}
	for _, f := range s.optional {
		if f == field {
			return true
		}
	}
	return false
}
