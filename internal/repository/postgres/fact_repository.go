package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
)

// FactRepository handles knowledge graph facts in PostgreSQL. Writes are
// append-only; which fact is current for a subject+predicate is resolved at
// read time.
type FactRepository struct {
	db *database.PostgresDB
}

// NewFactRepository creates a new fact repository
func NewFactRepository(db *database.PostgresDB) *FactRepository {
	return &FactRepository{db: db}
}

// Append writes a new fact without touching earlier ones
func (r *FactRepository) Append(ctx context.Context, fact *domain.MemoryFact) error {
	query := `
		INSERT INTO memory_facts (user_id, subject, predicate, object, confidence, valid_from, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		fact.UserID,
		fact.Subject,
		fact.Predicate,
		fact.Object,
		fact.Confidence,
		fact.ValidFrom,
		fact.CreatedAt,
	).Scan(&fact.ID)
	if err != nil {
		return fmt.Errorf("failed to append fact: %w", err)
	}

	return nil
}

// Current returns the winning fact per subject+predicate for a user: highest
// confidence first, recency breaking ties. Results are ordered by confidence
// so that truncation keeps the strongest facts. A non-nil predicates filter
// restricts the read to those predicate types.
func (r *FactRepository) Current(ctx context.Context, userID string, predicates []string, limit int) ([]domain.MemoryFact, error) {
	query := `
		SELECT id, user_id, subject, predicate, object, confidence, valid_from, created_at
		FROM (
			SELECT DISTINCT ON (subject, predicate)
				id, user_id, subject, predicate, object, confidence, valid_from, created_at
			FROM memory_facts
			WHERE user_id = $1
			AND ($2::text[] IS NULL OR predicate = ANY($2))
			ORDER BY subject, predicate, confidence DESC, valid_from DESC
		) current
		ORDER BY confidence DESC, valid_from DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, predicates, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []domain.MemoryFact
	for rows.Next() {
		var fact domain.MemoryFact
		err := rows.Scan(
			&fact.ID,
			&fact.UserID,
			&fact.Subject,
			&fact.Predicate,
			&fact.Object,
			&fact.Confidence,
			&fact.ValidFrom,
			&fact.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}

	return facts, nil
}

// PruneSuperseded deletes facts that have been superseded and are older than
// the cutoff. The current fact of each subject+predicate is never removed, so
// reads observe no change. Runs from the scheduled compaction task.
func (r *FactRepository) PruneSuperseded(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM memory_facts f
		WHERE f.created_at < $1
		AND f.id NOT IN (
			SELECT DISTINCT ON (subject, predicate) id
			FROM memory_facts
			WHERE user_id = f.user_id
			ORDER BY subject, predicate, confidence DESC, valid_from DESC
		)
	`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune facts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
