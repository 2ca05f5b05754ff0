package postgres

import (
	"context"
	"sync"
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

func TestTurnRepository_CreateProvisional(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-create")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	t.Run("assigns sequence numbers in submission order", func(t *testing.T) {
		first := domain.NewTurn(thread.ID, uuid.New(), "I need an apartment", time.Now())
		second := domain.NewTurn(thread.ID, uuid.New(), "Kyrenia, 500 pounds", time.Now())

		created, idempotent, err := turnRepo.CreateProvisional(ctx, first)
		require.NoError(t, err)
		assert.False(t, idempotent)
		assert.Equal(t, 1, created.Seq)

		created, idempotent, err = turnRepo.CreateProvisional(ctx, second)
		require.NoError(t, err)
		assert.False(t, idempotent)
		assert.Equal(t, 2, created.Seq)
	})

	t.Run("duplicate client_msg_id returns original turn", func(t *testing.T) {
		clientMsgID := uuid.New()
		original := domain.NewTurn(thread.ID, clientMsgID, "long term", time.Now())

		created, idempotent, err := turnRepo.CreateProvisional(ctx, original)
		require.NoError(t, err)
		assert.False(t, idempotent)

		duplicate := domain.NewTurn(thread.ID, clientMsgID, "long term", time.Now())
		replayed, idempotent, err := turnRepo.CreateProvisional(ctx, duplicate)
		require.NoError(t, err)
		assert.True(t, idempotent)
		assert.Equal(t, created.ID, replayed.ID)
		assert.Equal(t, created.Seq, replayed.Seq)
	})
}

func TestTurnRepository_GetByClientMsgIDForUser(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-key")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	clientMsgID := uuid.New()
	turn := domain.NewTurn(thread.ID, clientMsgID, "hi", time.Now())
	_, _, err = turnRepo.CreateProvisional(ctx, turn)
	require.NoError(t, err)

	t.Run("resolves the turn without a thread id", func(t *testing.T) {
		found, err := turnRepo.GetByClientMsgIDForUser(ctx, thread.UserID, clientMsgID)
		require.NoError(t, err)
		assert.Equal(t, turn.ID, found.ID)
		assert.Equal(t, thread.ID, found.ThreadID)
	})

	t.Run("another user's key finds nothing", func(t *testing.T) {
		_, err := turnRepo.GetByClientMsgIDForUser(ctx, "someone-else", clientMsgID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTurnRepository_ConcurrentSeqAssignment(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-race")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	const submissions = 5
	var wg sync.WaitGroup
	seqs := make([]int, submissions)
	errs := make([]error, submissions)
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, _, err := turnRepo.CreateProvisional(ctx, domain.NewTurn(thread.ID, uuid.New(), "concurrent", time.Now()))
			if err == nil {
				seqs[i] = created.Seq
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	// Every submission lands on its own seq
	seen := make(map[int]bool)
	for i := 0; i < submissions; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[seqs[i]], "seq %d assigned twice", seqs[i])
		seen[seqs[i]] = true
	}
}

func TestTurnRepository_StatusTransitions(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-status")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	turn := domain.NewTurn(thread.ID, uuid.New(), "hello", time.Now())
	_, _, err = turnRepo.CreateProvisional(ctx, turn)
	require.NoError(t, err)

	t.Run("mark processing succeeds once", func(t *testing.T) {
		picked, err := turnRepo.MarkProcessing(ctx, turn.ID)
		require.NoError(t, err)
		assert.True(t, picked)

		// Second pickup finds no queued row
		picked, err = turnRepo.MarkProcessing(ctx, turn.ID)
		require.NoError(t, err)
		assert.False(t, picked)
	})

	t.Run("commit persists act and output", func(t *testing.T) {
		turn.Commit(domain.ActAskSlot, "Which area are you looking in?", time.Now())

		err := database.Transaction(ctx, db, func(tx pgx.Tx) error {
			return turnRepo.Commit(ctx, tx, turn)
		})
		require.NoError(t, err)

		fetched, err := turnRepo.GetByID(ctx, turn.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TurnStatusCommitted, fetched.Status)
		assert.Equal(t, domain.ActAskSlot, fetched.Act)
		assert.Equal(t, "Which area are you looking in?", fetched.Output)
		assert.NotNil(t, fetched.CommittedAt)
	})
}

func TestTurnRepository_Discard(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-discard")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	queued := domain.NewTurn(thread.ID, uuid.New(), "cancel me", time.Now())
	_, _, err = turnRepo.CreateProvisional(ctx, queued)
	require.NoError(t, err)

	processing := domain.NewTurn(thread.ID, uuid.New(), "already running", time.Now())
	_, _, err = turnRepo.CreateProvisional(ctx, processing)
	require.NoError(t, err)
	_, err = turnRepo.MarkProcessing(ctx, processing.ID)
	require.NoError(t, err)

	// Only the queued turn is discarded, the processing one keeps running
	discarded, err := turnRepo.Discard(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, discarded)

	fetched, err := turnRepo.GetByID(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStatusDiscarded, fetched.Status)

	fetched, err = turnRepo.GetByID(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStatusProcessing, fetched.Status)
}

func TestTurnRepository_ListRecent(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	threadRepo := NewThreadRepository(db)
	turnRepo := NewTurnRepository(db)
	ctx := context.Background()

	thread := createTestThread("user-turn-list")
	defer cleanupThreads(t, db, thread.ID)

	err := threadRepo.Create(ctx, thread)
	require.NoError(t, err)

	inputs := []string{"first", "second", "third"}
	for _, input := range inputs {
		turn := domain.NewTurn(thread.ID, uuid.New(), input, time.Now())
		_, _, err := turnRepo.CreateProvisional(ctx, turn)
		require.NoError(t, err)

		turn.Commit(domain.ActAskSlot, "reply to "+input, time.Now())
		err = database.Transaction(ctx, db, func(tx pgx.Tx) error {
			return turnRepo.Commit(ctx, tx, turn)
		})
		require.NoError(t, err)
	}

	// Uncommitted turns never appear in rehydration
	pending := domain.NewTurn(thread.ID, uuid.New(), "still queued", time.Now())
	_, _, err = turnRepo.CreateProvisional(ctx, pending)
	require.NoError(t, err)

	turns, err := turnRepo.ListRecent(ctx, thread.ID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Input)
	assert.Equal(t, "third", turns[1].Input)
	assert.Less(t, turns[0].Seq, turns[1].Seq)
}
