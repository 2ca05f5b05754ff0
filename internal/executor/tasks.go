package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeTurnProcess is the task type for processing one queued turn
	TypeTurnProcess = "turn:process"
	// TypeFactCompaction is the task type for pruning superseded memory facts
	TypeFactCompaction = "memory:compact"
)

// TurnProcessPayload is the payload for turn processing tasks
type TurnProcessPayload struct {
	TurnID   uuid.UUID `json:"turn_id"`
	ThreadID uuid.UUID `json:"thread_id"`
}

// NewTurnProcessTask creates a turn processing task
func NewTurnProcessTask(payload *TurnProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn payload: %w", err)
	}
	return asynq.NewTask(TypeTurnProcess, data, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute)), nil
}

// FactCompactionPayload is the payload for fact compaction tasks
type FactCompactionPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewFactCompactionTask creates a fact compaction task
func NewFactCompactionTask(payload *FactCompactionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compaction payload: %w", err)
	}
	return asynq.NewTask(TypeFactCompaction, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// Enqueuer adapts the asynq client for the submit handler
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a new enqueuer
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueTurn queues one accepted turn for processing
func (e *Enqueuer) EnqueueTurn(ctx context.Context, threadID, turnID uuid.UUID) error {
	task, err := NewTurnProcessTask(&TurnProcessPayload{TurnID: turnID, ThreadID: threadID})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue("critical"))
	return err
}
