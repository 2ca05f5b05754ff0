package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
)

// createTestThread creates a thread with test data
func createTestThread(userID string) *domain.Thread {
	return domain.NewThread(userID, time.Now())
}

func TestThreadRepository_Create(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-thread-create")
	defer cleanupThreads(t, db, thread.ID)

	err := repo.Create(ctx, thread)
	require.NoError(t, err)

	// Verify by fetching
	fetched, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, fetched.ID)
	assert.Equal(t, thread.UserID, fetched.UserID)
	assert.Equal(t, 0, fetched.TurnCount)
	assert.Empty(t, fetched.Slots)
}

func TestThreadRepository_GetByID(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-thread-get")
	defer cleanupThreads(t, db, thread.ID)

	err := repo.Create(ctx, thread)
	require.NoError(t, err)

	t.Run("existing thread", func(t *testing.T) {
		fetched, err := repo.GetByID(ctx, thread.ID)
		require.NoError(t, err)
		assert.Equal(t, thread.ID, fetched.ID)
	})

	t.Run("non-existent thread", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestThreadRepository_Checkpoint(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewThreadRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-thread-checkpoint")
	defer cleanupThreads(t, db, thread.ID)

	err := repo.Create(ctx, thread)
	require.NoError(t, err)

	slots := domain.SlotMap{
		"location": {Value: "kyrenia", Confidence: 0.9},
		"budget":   {Value: "500", Confidence: 0.8},
	}
	thread.Checkpoint(domain.DomainRealEstate, "find_rental", slots, time.Now())

	err = database.Transaction(ctx, db, func(tx pgx.Tx) error {
		return repo.Checkpoint(ctx, tx, thread)
	})
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainRealEstate, fetched.ActiveDomain)
	assert.Equal(t, "find_rental", fetched.CurrentIntent)
	assert.Equal(t, 1, fetched.TurnCount)
	assert.Equal(t, "kyrenia", fetched.Slots["location"].Value)
	assert.InDelta(t, 0.9, fetched.Slots["location"].Confidence, 0.001)
}
