package domain

import (
	"time"
)

// MemoryFact is an append-only (subject, predicate, object) triple about a
// user. A newer fact with the same subject+predicate supersedes an older one
// at read time; nothing is ever deleted or mutated in place.
type MemoryFact struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	Subject    string    `json:"subject"`
	Predicate  string    `json:"predicate"`
	Object     string    `json:"object"`
	Confidence float64   `json:"confidence"`
	ValidFrom  time.Time `json:"validFrom"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Supersedes reports whether f is preferred over other for the same
// subject+predicate: higher confidence wins, recency breaks ties.
func (f MemoryFact) Supersedes(other MemoryFact) bool {
	if f.Confidence != other.Confidence {
		return f.Confidence > other.Confidence
	}
	return f.ValidFrom.After(other.ValidFrom)
}

// RelevantPredicates lists the predicate types a business domain consumes
// from the knowledge graph. Graph reads are filtered to these; a thread with
// no pinned domain reads everything.
func RelevantPredicates(d BusinessDomain) []string {
	switch d {
	case DomainRealEstate:
		return []string{"prefers_location"}
	case DomainVehicleRental:
		return []string{"prefers_vehicle_type", "prefers_location"}
	default:
		return nil
	}
}

// FactInput is a fact write expressed by an agent action
type FactInput struct {
	Subject    string  `json:"subject" validate:"required"`
	Predicate  string  `json:"predicate" validate:"required"`
	Object     string  `json:"object" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// MemorySnippet is one ranked session memory recall result
type MemorySnippet struct {
	Content string    `json:"content"`
	Role    Role      `json:"role"`
	Score   float64   `json:"score"`
	At      time.Time `json:"at"`
}

// FusedContext is the memory fusion output for one turn. Given identical
// inputs the fusion is deterministic, which keeps supervisor decisions
// reproducible under test.
type FusedContext struct {
	// Retrieved is the single free-text context string handed to agents
	Retrieved string `json:"retrieved"`
	// Summary is the session-level recall text
	Summary string `json:"summary"`
	// Facts are the current knowledge graph facts, deduplicated by predicate
	Facts []MemoryFact `json:"facts"`
	// Recent is the short-term buffer content, oldest first
	Recent []BufferedTurn `json:"recent"`
	// Partial marks that at least one source missed its timeout
	Partial bool `json:"partial"`
}

// BufferedTurn is one entry of the in-process short-term buffer
type BufferedTurn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
