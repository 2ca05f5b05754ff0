package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/middleware"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
)

// ThreadStore persists conversation threads
type ThreadStore interface {
	Create(ctx context.Context, thread *domain.Thread) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error)
}

// TurnStore persists turns
type TurnStore interface {
	CreateProvisional(ctx context.Context, turn *domain.Turn) (*domain.Turn, bool, error)
	GetByClientMsgIDForUser(ctx context.Context, userID string, clientMsgID uuid.UUID) (*domain.Turn, error)
	Discard(ctx context.Context, threadID uuid.UUID) (int, error)
}

// TurnEnqueuer queues accepted turns for processing
type TurnEnqueuer interface {
	EnqueueTurn(ctx context.Context, threadID, turnID uuid.UUID) error
}

// SnapshotProvider builds thread state snapshots
type SnapshotProvider interface {
	Snapshot(ctx context.Context, threadID uuid.UUID) (*domain.RehydrationSnapshot, error)
}

// EnvelopePublisher pushes delivery envelopes toward the stream
type EnvelopePublisher interface {
	PublishEnvelope(ctx context.Context, env domain.Envelope) error
}

// ThreadHandler handles turn submission and thread reads
type ThreadHandler struct {
	threads       ThreadStore
	turns         TurnStore
	enqueuer      TurnEnqueuer
	snapshots     SnapshotProvider
	publisher     EnvelopePublisher
	schemaVersion string
	logger        *zap.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(
	threads ThreadStore,
	turns TurnStore,
	enqueuer TurnEnqueuer,
	snapshots SnapshotProvider,
	publisher EnvelopePublisher,
	schemaVersion string,
	logger *zap.Logger,
) *ThreadHandler {
	return &ThreadHandler{
		threads:       threads,
		turns:         turns,
		enqueuer:      enqueuer,
		snapshots:     snapshots,
		publisher:     publisher,
		schemaVersion: schemaVersion,
		logger:        logger,
	}
}

// Submit handles POST /v1/threads/messages. Submission is asynchronous: the
// turn is durably queued and acknowledged with 202; the reply arrives on the
// thread's delivery stream. Resubmitting the same (threadId, clientMsgId)
// acknowledges the original turn again without queuing new work.
func (h *ThreadHandler) Submit(c *fiber.Ctx) error {
	var input domain.SubmitInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, err)
	}

	userID := middleware.GetUserID(c)
	now := time.Now()

	clientMsgID := uuid.New()
	if input.ClientMsgID != nil {
		clientMsgID = *input.ClientMsgID
	}

	// A resubmission that omits the thread id must still hit the original
	// turn, so the idempotency key is resolved per user before a new thread
	// is minted
	if input.ThreadID == nil && input.ClientMsgID != nil {
		original, err := h.turns.GetByClientMsgIDForUser(c.Context(), userID, clientMsgID)
		if err == nil {
			return h.acknowledgeDuplicate(c, original)
		}
		if !apperrors.IsNotFound(err) {
			return respondError(c, err)
		}
	}

	var thread *domain.Thread
	if input.ThreadID != nil {
		existing, err := h.threads.GetByID(c.Context(), *input.ThreadID)
		if err != nil {
			return respondError(c, err)
		}
		if existing.UserID != userID {
			return respondError(c, apperrors.NotFound("thread"))
		}
		thread = existing
	} else {
		thread = domain.NewThread(userID, now)
		if err := h.threads.Create(c.Context(), thread); err != nil {
			return respondError(c, err)
		}
	}

	turn, existed, err := h.turns.CreateProvisional(c.Context(), domain.NewTurn(thread.ID, clientMsgID, input.Message, now))
	if err != nil {
		return respondError(c, err)
	}

	if existed {
		return h.acknowledgeDuplicate(c, turn)
	}

	if err := h.enqueuer.EnqueueTurn(c.Context(), thread.ID, turn.ID); err != nil {
		h.logger.Error("failed to enqueue turn",
			zap.String("thread_id", thread.ID.String()),
			zap.String("turn_id", turn.ID.String()),
			zap.Error(err),
		)
		return respondError(c, apperrors.Internal("failed to queue message"))
	}

	h.publishReady(c, thread.ID, turn.ID)

	return c.Status(fiber.StatusAccepted).JSON(domain.SubmitResult{
		OK:           true,
		ThreadID:     thread.ID,
		QueuedTurnID: turn.ID,
		ClientMsgID:  clientMsgID,
		Idempotent:   false,
	})
}

// acknowledgeDuplicate returns the original acceptance unchanged: same
// thread, same queued turn, and no new work enqueued
func (h *ThreadHandler) acknowledgeDuplicate(c *fiber.Ctx, turn *domain.Turn) error {
	metrics.RecordIdempotentHit()
	h.logger.Info("duplicate submission acknowledged",
		zap.String("thread_id", turn.ThreadID.String()),
		zap.String("client_msg_id", turn.ClientMsgID.String()),
	)
	return c.Status(fiber.StatusAccepted).JSON(domain.SubmitResult{
		OK:           true,
		ThreadID:     turn.ThreadID,
		QueuedTurnID: turn.ID,
		ClientMsgID:  turn.ClientMsgID,
		Idempotent:   true,
	})
}

// publishReady tells an attached stream that the turn was accepted
func (h *ThreadHandler) publishReady(c *fiber.Ctx, threadID, turnID uuid.UUID) {
	env := domain.NewEnvelope(domain.EventReady, threadID, h.schemaVersion, middleware.GetRequestID(c), map[string]any{
		"queuedTurnId": turnID.String(),
	})
	if err := h.publisher.PublishEnvelope(c.Context(), env); err != nil {
		h.logger.Warn("failed to publish ready frame",
			zap.String("thread_id", threadID.String()),
			zap.Error(err),
		)
	}
}

// GetThread handles GET /v1/threads/:id
func (h *ThreadHandler) GetThread(c *fiber.Ctx) error {
	threadID, err := parseParamUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	thread, err := h.threads.GetByID(c.Context(), threadID)
	if err != nil {
		return respondError(c, err)
	}
	if thread.UserID != middleware.GetUserID(c) {
		return respondError(c, apperrors.NotFound("thread"))
	}

	snapshot, err := h.snapshots.Snapshot(c.Context(), threadID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(snapshot)
}

// Stop handles POST /v1/threads/:id/stop. Queued turns not yet dispatched
// are discarded; a turn already processing runs to completion.
func (h *ThreadHandler) Stop(c *fiber.Ctx) error {
	threadID, err := parseParamUUID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	thread, err := h.threads.GetByID(c.Context(), threadID)
	if err != nil {
		return respondError(c, err)
	}
	if thread.UserID != middleware.GetUserID(c) {
		return respondError(c, apperrors.NotFound("thread"))
	}

	discarded, err := h.turns.Discard(c.Context(), threadID)
	if err != nil {
		return respondError(c, err)
	}
	for i := 0; i < discarded; i++ {
		metrics.RecordDiscardedTurn()
	}

	h.logger.Info("queued turns discarded",
		zap.String("thread_id", threadID.String()),
		zap.Int("discarded", discarded),
	)

	return c.JSON(fiber.Map{
		"ok":        true,
		"discarded": discarded,
	})
}
