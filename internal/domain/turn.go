package domain

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one user input paired with one emitted output.
// (ThreadID, ClientMsgID) is unique: a duplicate submission is a no-op that
// returns the previously computed result unchanged.
type Turn struct {
	ID          uuid.UUID  `json:"id"`
	ThreadID    uuid.UUID  `json:"threadId"`
	ClientMsgID uuid.UUID  `json:"clientMsgId"`
	Role        Role       `json:"role"`
	Input       string     `json:"input"`
	Output      string     `json:"output,omitempty"`
	Act         Act        `json:"act,omitempty"`
	Status      TurnStatus `json:"status"`
	InReplyTo   *uuid.UUID `json:"inReplyTo,omitempty"`
	// Seq is the thread-local submission sequence number; delivery preserves
	// Seq order within one thread
	Seq         int        `json:"seq"`
	CreatedAt   time.Time  `json:"createdAt"`
	CommittedAt *time.Time `json:"committedAt,omitempty"`
}

// NewTurn creates a provisional turn record for an accepted submission
func NewTurn(threadID, clientMsgID uuid.UUID, input string, now time.Time) *Turn {
	return &Turn{
		ID:          uuid.New(),
		ThreadID:    threadID,
		ClientMsgID: clientMsgID,
		Role:        RoleUser,
		Input:       input,
		Status:      TurnStatusQueued,
		CreatedAt:   now.UTC(),
	}
}

// Commit finalizes the turn with its computed output
func (t *Turn) Commit(act Act, output string, now time.Time) {
	committed := now.UTC()
	t.Act = act
	t.Output = output
	t.Status = TurnStatusCommitted
	t.CommittedAt = &committed
}

// Discardable reports whether a stop control message may still discard the
// turn. Discard is only possible before dispatch, never after.
func (t *Turn) Discardable() bool {
	return t.Status == TurnStatusQueued
}

// SubmitInput is a validated turn submission
type SubmitInput struct {
	Message     string     `json:"message" validate:"required,max=4000"`
	ClientMsgID *uuid.UUID `json:"clientMsgId,omitempty"`
	ThreadID    *uuid.UUID `json:"threadId,omitempty"`
	Locale      string     `json:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// SubmitResult acknowledges an accepted (or deduplicated) submission
type SubmitResult struct {
	OK           bool      `json:"ok"`
	ThreadID     uuid.UUID `json:"threadId"`
	QueuedTurnID uuid.UUID `json:"queuedTurnId"`
	ClientMsgID  uuid.UUID `json:"clientMsgIdEcho"`
	Idempotent   bool      `json:"idempotent"`
}
