package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/pkg/database"
)

// getTestDB returns a database connection for integration tests.
// Returns nil if the database is not available (skips tests).
func getTestDB(t *testing.T) *database.PostgresDB {
	// Check if we're running integration tests
	if os.Getenv("POSTGRES_TEST_HOST") == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_HOST not set")
		return nil
	}

	cfg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_TEST_HOST"),
		Port:     5432,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASS"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	if cfg.Database == "" {
		cfg.Database = "test_concierge"
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}

	db, err := database.NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to PostgreSQL: %v", err)
		return nil
	}

	return db
}

// cleanupThreads removes test threads and their turns from the database
func cleanupThreads(t *testing.T, db *database.PostgresDB, ids ...uuid.UUID) {
	ctx := context.Background()
	for _, id := range ids {
		_, _ = db.Pool.Exec(ctx, "DELETE FROM session_memory WHERE thread_id = $1", id)
		_, _ = db.Pool.Exec(ctx, "DELETE FROM turns WHERE thread_id = $1", id)
		_, _ = db.Pool.Exec(ctx, "DELETE FROM threads WHERE id = $1", id)
	}
}

// cleanupFacts removes test facts from the database
func cleanupFacts(t *testing.T, db *database.PostgresDB, userIDs ...string) {
	ctx := context.Background()
	for _, userID := range userIDs {
		_, _ = db.Pool.Exec(ctx, "DELETE FROM memory_facts WHERE user_id = $1", userID)
	}
}
