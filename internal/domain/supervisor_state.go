package domain

import (
	"github.com/google/uuid"
)

// SupervisorState is the ephemeral per-turn working set. It is reconstructed
// from Thread + memory at the start of a turn and discarded once the turn
// commits; it is never itself persisted.
type SupervisorState struct {
	ThreadID  uuid.UUID
	UserInput string

	// Memory fusion output
	RetrievedContext string
	MemorySummary    string
	MemoryFacts      []MemoryFact
	MemoryRecent     []BufferedTurn

	// Routing
	Domain     BusinessDomain
	Intent     string
	Confidence float64

	// Slot filling
	Slots        SlotMap
	PendingSlots []string

	// Decision
	State TurnState
	Act   Act
}

// Ready reports whether all required slots are present
func (s *SupervisorState) Ready() bool {
	return len(s.PendingSlots) == 0
}

// NextSlot returns the next missing slot to ask for
func (s *SupervisorState) NextSlot() string {
	if len(s.PendingSlots) == 0 {
		return ""
	}
	return s.PendingSlots[0]
}
