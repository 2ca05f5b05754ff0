package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
)

// ThreadReader loads thread state for rehydration
type ThreadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error)
}

// TurnLister loads recent committed turns for rehydration
type TurnLister interface {
	ListRecent(ctx context.Context, threadID uuid.UUID, limit int) ([]*domain.Turn, error)
}

// Rehydrator builds the state frame pushed to a client immediately on
// (re)connect, before any live envelope. Pushing state rather than having
// the client re-fetch it removes the race between reconnecting and reading.
type Rehydrator struct {
	threads ThreadReader
	turns   TurnLister
	cfg     config.GatewayConfig
}

// NewRehydrator creates a new rehydrator
func NewRehydrator(threads ThreadReader, turns TurnLister, cfg config.GatewayConfig) *Rehydrator {
	return &Rehydrator{threads: threads, turns: turns, cfg: cfg}
}

// Build assembles the rehydration envelope for one thread
func (r *Rehydrator) Build(ctx context.Context, threadID uuid.UUID, traceID string) (domain.Envelope, error) {
	thread, err := r.threads.GetByID(ctx, threadID)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("failed to load thread for rehydration: %w", err)
	}

	recent, err := r.turns.ListRecent(ctx, threadID, r.cfg.RehydrationTurns)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("failed to load recent turns for rehydration: %w", err)
	}

	turns := make([]domain.Turn, 0, len(recent))
	for _, t := range recent {
		turns = append(turns, *t)
	}

	return domain.NewEnvelope(domain.EventRehydration, threadID, r.cfg.SchemaVersion, traceID, map[string]any{
		"activeDomain":  thread.ActiveDomain,
		"currentIntent": thread.CurrentIntent,
		"turnCount":     thread.TurnCount,
		"recentTurns":   turns,
	}), nil
}

// Snapshot returns the rehydration data as a plain struct for the thread
// read endpoint
func (r *Rehydrator) Snapshot(ctx context.Context, threadID uuid.UUID) (*domain.RehydrationSnapshot, error) {
	thread, err := r.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	recent, err := r.turns.ListRecent(ctx, threadID, r.cfg.RehydrationTurns)
	if err != nil {
		return nil, err
	}

	turns := make([]domain.Turn, 0, len(recent))
	for _, t := range recent {
		turns = append(turns, *t)
	}

	return &domain.RehydrationSnapshot{
		ThreadID:      thread.ID,
		ActiveDomain:  thread.ActiveDomain,
		CurrentIntent: thread.CurrentIntent,
		TurnCount:     thread.TurnCount,
		RecentTurns:   turns,
	}, nil
}
