package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
)

// ThreadRepository handles thread data operations in PostgreSQL
type ThreadRepository struct {
	db *database.PostgresDB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *database.PostgresDB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Create creates a new thread
func (r *ThreadRepository) Create(ctx context.Context, thread *domain.Thread) error {
	slots, err := json.Marshal(thread.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	query := `
		INSERT INTO threads (id, user_id, active_domain, current_intent, turn_count, slots, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		thread.ID,
		thread.UserID,
		string(thread.ActiveDomain),
		thread.CurrentIntent,
		thread.TurnCount,
		slots,
		thread.CreatedAt,
		thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	return nil
}

// GetByID retrieves a thread by ID
func (r *ThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error) {
	query := `
		SELECT id, user_id, active_domain, current_intent, turn_count, slots, created_at, updated_at
		FROM threads
		WHERE id = $1
	`

	return r.scanThread(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a thread with a row lock inside a transaction
func (r *ThreadRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Thread, error) {
	query := `
		SELECT id, user_id, active_domain, current_intent, turn_count, slots, created_at, updated_at
		FROM threads
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanThread(tx.QueryRow(ctx, query, id))
}

// Checkpoint persists the thread state after a committed turn. Runs inside
// the turn-commit transaction so the thread and its turn commit atomically.
func (r *ThreadRepository) Checkpoint(ctx context.Context, tx pgx.Tx, thread *domain.Thread) error {
	slots, err := json.Marshal(thread.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	query := `
		UPDATE threads
		SET active_domain = $2, current_intent = $3, turn_count = $4, slots = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		thread.ID,
		string(thread.ActiveDomain),
		thread.CurrentIntent,
		thread.TurnCount,
		slots,
		thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to checkpoint thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("thread")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ThreadRepository) scanThread(row rowScanner) (*domain.Thread, error) {
	var (
		thread       domain.Thread
		activeDomain string
		slots        []byte
	)

	err := row.Scan(
		&thread.ID,
		&thread.UserID,
		&activeDomain,
		&thread.CurrentIntent,
		&thread.TurnCount,
		&slots,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("thread")
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	thread.ActiveDomain = domain.BusinessDomain(activeDomain)
	thread.Slots = domain.SlotMap{}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &thread.Slots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
		}
	}

	return &thread, nil
}
