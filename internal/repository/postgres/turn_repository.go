package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
)

// TurnRepository handles turn data operations in PostgreSQL
type TurnRepository struct {
	db *database.PostgresDB
}

// NewTurnRepository creates a new turn repository
func NewTurnRepository(db *database.PostgresDB) *TurnRepository {
	return &TurnRepository{db: db}
}

// seqAssignRetries bounds how often an insert re-reads MAX(seq) after losing
// a race with a concurrent insert on the same thread
const seqAssignRetries = 5

// CreateProvisional inserts a queued turn keyed on (thread_id, client_msg_id).
// When the same key was already accepted, the original row is returned with
// idempotent=true and no new row is written. Seq is assigned from the thread's
// submission order at insert time; UNIQUE (thread_id, seq) rejects a stale
// read of the max and the insert retries with a fresh one.
func (r *TurnRepository) CreateProvisional(ctx context.Context, turn *domain.Turn) (*domain.Turn, bool, error) {
	query := `
		INSERT INTO turns (id, thread_id, client_msg_id, role, input, status, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE thread_id = $2),
			$7)
		ON CONFLICT (thread_id, client_msg_id) DO NOTHING
		RETURNING seq
	`

	for attempt := 0; ; attempt++ {
		err := r.db.Pool.QueryRow(ctx, query,
			turn.ID,
			turn.ThreadID,
			turn.ClientMsgID,
			string(turn.Role),
			turn.Input,
			string(turn.Status),
			turn.CreatedAt,
		).Scan(&turn.Seq)
		if err == nil {
			return turn, false, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			break
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_turns_thread_seq" && attempt < seqAssignRetries {
			continue
		}
		return nil, false, fmt.Errorf("failed to create turn: %w", err)
	}

	// Conflict: a turn with this client_msg_id already exists for the thread
	existing, err := r.GetByClientMsgID(ctx, turn.ThreadID, turn.ClientMsgID)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// GetByID retrieves a turn by ID
func (r *TurnRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Turn, error) {
	query := selectTurn + ` WHERE id = $1`
	return scanTurn(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByClientMsgID retrieves a turn by its idempotency key
func (r *TurnRepository) GetByClientMsgID(ctx context.Context, threadID, clientMsgID uuid.UUID) (*domain.Turn, error) {
	query := selectTurn + ` WHERE thread_id = $1 AND client_msg_id = $2`
	return scanTurn(r.db.Pool.QueryRow(ctx, query, threadID, clientMsgID))
}

// GetByClientMsgIDForUser retrieves a turn by idempotency key across all of
// a user's threads. Resubmissions that omit the thread id are resolved here
// before a new thread is minted.
func (r *TurnRepository) GetByClientMsgIDForUser(ctx context.Context, userID string, clientMsgID uuid.UUID) (*domain.Turn, error) {
	query := `
		SELECT t.id, t.thread_id, t.client_msg_id, t.role, t.input, t.output, t.act, t.status, t.in_reply_to, t.seq, t.created_at, t.committed_at
		FROM turns t
		JOIN threads th ON th.id = t.thread_id
		WHERE th.user_id = $1 AND t.client_msg_id = $2
		ORDER BY t.created_at
		LIMIT 1
	`
	return scanTurn(r.db.Pool.QueryRow(ctx, query, userID, clientMsgID))
}

// MarkProcessing transitions a queued turn to processing. Returns false when
// the turn was already discarded, so the executor can drop it without work.
func (r *TurnRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE turns
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, string(domain.TurnStatusProcessing), string(domain.TurnStatusQueued))
	if err != nil {
		return false, fmt.Errorf("failed to mark turn processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Commit finalizes a processed turn inside the turn-commit transaction
func (r *TurnRepository) Commit(ctx context.Context, tx pgx.Tx, turn *domain.Turn) error {
	query := `
		UPDATE turns
		SET status = $2, act = $3, output = $4, in_reply_to = $5, committed_at = $6
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		turn.ID,
		string(turn.Status),
		string(turn.Act),
		turn.Output,
		turn.InReplyTo,
		turn.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("turn")
	}

	return nil
}

// Discard marks a queued turn as discarded. Turns already picked up by the
// executor are left alone and the caller is told nothing was discarded.
func (r *TurnRepository) Discard(ctx context.Context, threadID uuid.UUID) (int, error) {
	query := `
		UPDATE turns
		SET status = $2
		WHERE thread_id = $1 AND status = $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, threadID, string(domain.TurnStatusDiscarded), string(domain.TurnStatusQueued))
	if err != nil {
		return 0, fmt.Errorf("failed to discard turns: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Fail marks a turn as failed after the executor gave up on it
func (r *TurnRepository) Fail(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE turns SET status = $2 WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, id, string(domain.TurnStatusFailed)); err != nil {
		return fmt.Errorf("failed to mark turn failed: %w", err)
	}
	return nil
}

// MinPendingSeq returns the lowest seq still queued or processing for a
// thread, or 0 when nothing is pending. The executor uses it to keep a
// thread's turns in submission order.
func (r *TurnRepository) MinPendingSeq(ctx context.Context, threadID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MIN(seq), 0)
		FROM turns
		WHERE thread_id = $1 AND status IN ($2, $3)
	`

	var seq int
	err := r.db.Pool.QueryRow(ctx, query, threadID,
		string(domain.TurnStatusQueued), string(domain.TurnStatusProcessing)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending seq: %w", err)
	}
	return seq, nil
}

// ListRecent returns the most recent committed turns of a thread in ascending
// seq order, for rehydration frames and short-term memory.
func (r *TurnRepository) ListRecent(ctx context.Context, threadID uuid.UUID, limit int) ([]*domain.Turn, error) {
	query := selectTurn + `
		WHERE thread_id = $1 AND status = $2
		ORDER BY seq DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, threadID, string(domain.TurnStatusCommitted), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []*domain.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	// Reverse into ascending seq order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

const selectTurn = `
	SELECT id, thread_id, client_msg_id, role, input, output, act, status, in_reply_to, seq, created_at, committed_at
	FROM turns`

func scanTurn(row rowScanner) (*domain.Turn, error) {
	var (
		turn   domain.Turn
		role   string
		act    *string
		status string
		output *string
	)

	err := row.Scan(
		&turn.ID,
		&turn.ThreadID,
		&turn.ClientMsgID,
		&role,
		&turn.Input,
		&output,
		&act,
		&status,
		&turn.InReplyTo,
		&turn.Seq,
		&turn.CreatedAt,
		&turn.CommittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("turn")
		}
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}

	turn.Role = domain.Role(role)
	turn.Status = domain.TurnStatus(status)
	if act != nil {
		turn.Act = domain.Act(*act)
	}
	if output != nil {
		turn.Output = *output
	}

	return &turn, nil
}
