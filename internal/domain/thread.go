package domain

import (
	"time"

	"github.com/google/uuid"
)

// Thread is the durable conversation identity. It is created lazily on the
// first enqueued turn, checkpointed after every committed turn, and never
// hard-deleted.
type Thread struct {
	ID            uuid.UUID      `json:"id"`
	UserID        string         `json:"userId"`
	ActiveDomain  BusinessDomain `json:"activeDomain"`
	CurrentIntent string         `json:"currentIntent"`
	TurnCount     int            `json:"turnCount"`
	// Slots carries the running slot map across turns so a filled slot is
	// never re-asked within the thread
	Slots     SlotMap   `json:"slots"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewThread creates a thread for its first turn
func NewThread(userID string, now time.Time) *Thread {
	return &Thread{
		ID:        uuid.New(),
		UserID:    userID,
		Slots:     SlotMap{},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Checkpoint advances the thread after a committed turn
func (t *Thread) Checkpoint(domain BusinessDomain, intent string, slots SlotMap, now time.Time) {
	t.ActiveDomain = domain
	t.CurrentIntent = intent
	t.Slots = slots
	t.TurnCount++
	t.UpdatedAt = now.UTC()
}

// SlotValue is one structured parameter extracted from user input
type SlotValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// SlotMap maps slot name to its filled value
type SlotMap map[string]SlotValue

// Merge folds newly extracted values into the map. A filled slot is only
// overwritten when the new value's confidence exceeds the existing one by at
// least threshold, so a confident answer is never clobbered by a weak guess.
func (m SlotMap) Merge(extracted SlotMap, threshold float64) {
	for name, next := range extracted {
		prev, ok := m[name]
		if !ok || next.Confidence >= prev.Confidence+threshold {
			m[name] = next
		}
	}
}

// Filled reports whether the named slot holds a value
func (m SlotMap) Filled(name string) bool {
	_, ok := m[name]
	return ok
}

// Pending returns the required slots not yet filled, preserving the order of
// required. Deterministic ordering keeps follow-up questions stable.
func (m SlotMap) Pending(required []string) []string {
	var pending []string
	for _, name := range required {
		if !m.Filled(name) {
			pending = append(pending, name)
		}
	}
	return pending
}

// Values flattens the map to plain strings for agent input
func (m SlotMap) Values() map[string]string {
	out := make(map[string]string, len(m))
	for name, v := range m {
		out[name] = v.Value
	}
	return out
}

// Clone returns an independent copy of the slot map
func (m SlotMap) Clone() SlotMap {
	out := make(SlotMap, len(m))
	for name, v := range m {
		out[name] = v
	}
	return out
}

// RehydrationSnapshot is the state pushed to a client immediately upon
// (re)connecting to a thread's delivery stream. It carries everything the
// client needs to rebuild UI state without a separate read call.
type RehydrationSnapshot struct {
	ThreadID      uuid.UUID      `json:"threadId"`
	ActiveDomain  BusinessDomain `json:"activeDomain"`
	CurrentIntent string         `json:"currentIntent"`
	TurnCount     int            `json:"turnCount"`
	RecentTurns   []Turn         `json:"recentTurns"`
}
