package domain

// Act is the supervisor's decision for a turn
type Act string

const (
	ActAskSlot            Act = "ASK_SLOT"
	ActSearchAndRecommend Act = "SEARCH_AND_RECOMMEND"
	ActClarify            Act = "CLARIFY"
	ActHandoff            Act = "HANDOFF"
	ActError              Act = "ERROR"
)

// IsValid checks if the act is valid
func (a Act) IsValid() bool {
	switch a {
	case ActAskSlot, ActSearchAndRecommend, ActClarify, ActHandoff, ActError:
		return true
	}
	return false
}

// TurnState is the supervisor's per-turn state machine position
type TurnState string

const (
	TurnStateCollecting TurnState = "COLLECTING"
	TurnStateReady      TurnState = "READY"
	TurnStateDispatched TurnState = "DISPATCHED"
	TurnStateDelivered  TurnState = "DELIVERED"
)

// TurnStatus tracks a queued turn through the executor
type TurnStatus string

const (
	TurnStatusQueued     TurnStatus = "QUEUED"
	TurnStatusProcessing TurnStatus = "PROCESSING"
	TurnStatusCommitted  TurnStatus = "COMMITTED"
	TurnStatusDiscarded  TurnStatus = "DISCARDED"
	TurnStatusFailed     TurnStatus = "FAILED"
)

// IsValid checks if the turn status is valid
func (s TurnStatus) IsValid() bool {
	switch s {
	case TurnStatusQueued, TurnStatusProcessing, TurnStatusCommitted, TurnStatusDiscarded, TurnStatusFailed:
		return true
	}
	return false
}

// Role tags turn content as user- or assistant-authored
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// BusinessDomain identifies a vertical served by a dedicated agent
type BusinessDomain string

const (
	DomainRealEstate    BusinessDomain = "real_estate"
	DomainVehicleRental BusinessDomain = "vehicle_rental"
	// DomainNone marks a thread with no pinned domain yet
	DomainNone BusinessDomain = ""
)

// IsValid checks if the business domain is valid
func (d BusinessDomain) IsValid() bool {
	switch d {
	case DomainRealEstate, DomainVehicleRental:
		return true
	}
	return false
}

// EnvelopeType is the coarse wire frame category
type EnvelopeType string

const (
	EnvelopeTypeChatMessage EnvelopeType = "chat_message"
	EnvelopeTypeChatStatus  EnvelopeType = "chat_status"
	EnvelopeTypeSystem      EnvelopeType = "system"
)

// IsValid checks if the envelope type is valid
func (t EnvelopeType) IsValid() bool {
	switch t {
	case EnvelopeTypeChatMessage, EnvelopeTypeChatStatus, EnvelopeTypeSystem:
		return true
	}
	return false
}

// EnvelopeEvent is the fine-grained delivery event
type EnvelopeEvent string

const (
	EventAssistantMessage EnvelopeEvent = "assistant_message"
	EventTyping           EnvelopeEvent = "typing"
	EventTypingDone       EnvelopeEvent = "typing_done"
	EventError            EnvelopeEvent = "error"
	EventReady            EnvelopeEvent = "ready"
	EventRehydration      EnvelopeEvent = "rehydration"
)

// IsValid checks if the envelope event is valid
func (e EnvelopeEvent) IsValid() bool {
	switch e {
	case EventAssistantMessage, EventTyping, EventTypingDone, EventError, EventReady, EventRehydration:
		return true
	}
	return false
}

// TypeForEvent returns the envelope type an event belongs under
func TypeForEvent(e EnvelopeEvent) EnvelopeType {
	switch e {
	case EventAssistantMessage, EventError:
		return EnvelopeTypeChatMessage
	case EventTyping, EventTypingDone:
		return EnvelopeTypeChatStatus
	default:
		return EnvelopeTypeSystem
	}
}

// ActionType identifies a typed capability invocation returned by an agent
type ActionType string

const (
	ActionShowListings    ActionType = "show_listings"
	ActionRememberFact    ActionType = "remember_fact"
	ActionRequestHandoff  ActionType = "request_handoff"
	ActionSuggestFollowup ActionType = "suggest_followup"
)

// IsValid checks if the action type is valid
func (t ActionType) IsValid() bool {
	switch t {
	case ActionShowListings, ActionRememberFact, ActionRequestHandoff, ActionSuggestFollowup:
		return true
	}
	return false
}
