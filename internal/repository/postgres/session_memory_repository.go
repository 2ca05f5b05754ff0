package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
)

// SessionMemoryRepository stores per-thread conversation snippets and serves
// ranked recall over them using Postgres full-text search.
type SessionMemoryRepository struct {
	db *database.PostgresDB
}

// NewSessionMemoryRepository creates a new session memory repository
func NewSessionMemoryRepository(db *database.PostgresDB) *SessionMemoryRepository {
	return &SessionMemoryRepository{db: db}
}

// Write records one snippet for later recall
func (r *SessionMemoryRepository) Write(ctx context.Context, threadID uuid.UUID, snippet *domain.MemorySnippet) error {
	query := `
		INSERT INTO session_memory (thread_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query, threadID, string(snippet.Role), snippet.Content, snippet.At)
	if err != nil {
		return fmt.Errorf("failed to write session memory: %w", err)
	}

	return nil
}

// Recall returns snippets ranked against the query text. When the query
// matches nothing the most recent snippets are returned instead, so recall
// always contributes context.
func (r *SessionMemoryRepository) Recall(ctx context.Context, threadID uuid.UUID, text string, limit int) ([]domain.MemorySnippet, error) {
	query := `
		SELECT role, content, ts_rank(to_tsvector('simple', content), q) AS score, created_at
		FROM session_memory, plainto_tsquery('simple', $2) q
		WHERE thread_id = $1 AND to_tsvector('simple', content) @@ q
		ORDER BY score DESC, created_at DESC
		LIMIT $3
	`

	snippets, err := r.querySnippets(ctx, query, threadID, text, limit)
	if err != nil {
		return nil, err
	}
	if len(snippets) > 0 {
		return snippets, nil
	}

	return r.latest(ctx, threadID, limit)
}

func (r *SessionMemoryRepository) latest(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.MemorySnippet, error) {
	query := `
		SELECT role, content, 0::float8 AS score, created_at
		FROM session_memory
		WHERE thread_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.querySnippets(ctx, query, threadID, limit)
}

func (r *SessionMemoryRepository) querySnippets(ctx context.Context, query string, args ...any) ([]domain.MemorySnippet, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query session memory: %w", err)
	}
	defer rows.Close()

	var snippets []domain.MemorySnippet
	for rows.Next() {
		var (
			snippet domain.MemorySnippet
			role    string
		)
		if err := rows.Scan(&role, &snippet.Content, &snippet.Score, &snippet.At); err != nil {
			return nil, fmt.Errorf("failed to scan session memory: %w", err)
		}
		snippet.Role = domain.Role(role)
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session memory: %w", err)
	}

	return snippets, nil
}
