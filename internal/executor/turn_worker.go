package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/database"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/id"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
	"github.com/easyislanders/concierge/internal/supervisor"
)

// TurnRepository defines the turn operations the worker needs
type TurnRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Turn, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MinPendingSeq(ctx context.Context, threadID uuid.UUID) (int, error)
	Commit(ctx context.Context, tx pgx.Tx, turn *domain.Turn) error
	Fail(ctx context.Context, id uuid.UUID) error
}

// ThreadRepository defines the thread operations the worker needs
type ThreadRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error)
	Checkpoint(ctx context.Context, tx pgx.Tx, thread *domain.Thread) error
}

// TurnProcessor decides one turn; implemented by the supervisor
type TurnProcessor interface {
	Process(ctx context.Context, thread *domain.Thread, turn *domain.Turn) *supervisor.Outcome
}

// EnvelopePublisher pushes delivery envelopes toward the gateway
type EnvelopePublisher interface {
	PublishEnvelope(ctx context.Context, env domain.Envelope) error
}

// errThreadBusy makes asynq retry the task with backoff; an earlier turn of
// the same thread is still in flight
var errThreadBusy = fmt.Errorf("thread lease unavailable, earlier turn in flight")

// TurnWorker processes queued turns
type TurnWorker struct {
	logger        *zap.Logger
	db            *database.PostgresDB
	turns         TurnRepository
	threads       ThreadRepository
	processor     TurnProcessor
	publisher     EnvelopePublisher
	lease         *ThreadLease
	schemaVersion string
}

// NewTurnWorker creates a new turn worker
func NewTurnWorker(
	logger *zap.Logger,
	db *database.PostgresDB,
	turns TurnRepository,
	threads ThreadRepository,
	processor TurnProcessor,
	publisher EnvelopePublisher,
	lease *ThreadLease,
	schemaVersion string,
) *TurnWorker {
	return &TurnWorker{
		logger:        logger,
		db:            db,
		turns:         turns,
		threads:       threads,
		processor:     processor,
		publisher:     publisher,
		lease:         lease,
		schemaVersion: schemaVersion,
	}
}

// ProcessTask processes one queued turn end to end
func (w *TurnWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload TurnProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal turn payload: %w", err)
	}

	log := w.logger.With(
		zap.String("thread_id", payload.ThreadID.String()),
		zap.String("turn_id", payload.TurnID.String()),
	)

	turn, err := w.turns.GetByID(ctx, payload.TurnID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("turn vanished before processing")
			return nil
		}
		return err
	}

	switch turn.Status {
	case domain.TurnStatusDiscarded:
		// Stopped before dispatch; drop without work
		metrics.RecordDiscardedTurn()
		log.Info("skipping discarded turn")
		return nil
	case domain.TurnStatusCommitted, domain.TurnStatusFailed:
		// Duplicate delivery of an already-finished task
		return nil
	}

	// In-order per thread: an earlier pending turn must commit first
	minSeq, err := w.turns.MinPendingSeq(ctx, payload.ThreadID)
	if err != nil {
		return err
	}
	if minSeq != 0 && minSeq < turn.Seq {
		return errThreadBusy
	}

	token, ok, err := w.lease.Acquire(ctx, payload.ThreadID)
	if err != nil {
		return err
	}
	if !ok {
		return errThreadBusy
	}
	defer func() {
		if err := w.lease.Release(context.WithoutCancel(ctx), payload.ThreadID, token); err != nil {
			log.Warn("failed to release thread lease", zap.Error(err))
		}
	}()

	// A retried task finds the turn already PROCESSING; pickup is only needed
	// on first delivery
	if turn.Status == domain.TurnStatusQueued {
		picked, err := w.turns.MarkProcessing(ctx, turn.ID)
		if err != nil {
			return err
		}
		if !picked {
			// Discarded between the status read and the pickup
			metrics.RecordDiscardedTurn()
			log.Info("turn discarded before pickup")
			return nil
		}
	}

	if err := w.processTurn(ctx, log, turn); err != nil {
		return w.handleFailure(ctx, log, t, turn, err)
	}
	return nil
}

func (w *TurnWorker) processTurn(ctx context.Context, log *zap.Logger, turn *domain.Turn) error {
	start := time.Now()
	traceID := id.NewTraceID()

	thread, err := w.threads.GetByID(ctx, turn.ThreadID)
	if err != nil {
		return err
	}

	w.publish(ctx, log, domain.NewEnvelope(domain.EventTyping, thread.ID, w.schemaVersion, traceID, nil))

	outcome := w.processor.Process(ctx, thread, turn)

	turn.Commit(outcome.Act, outcome.ReplyText, time.Now())
	err = database.Transaction(ctx, w.db, func(tx pgx.Tx) error {
		if err := w.turns.Commit(ctx, tx, turn); err != nil {
			return err
		}
		return w.threads.Checkpoint(ctx, tx, thread)
	})
	if err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	w.publishOutcome(ctx, log, thread.ID, traceID, turn, outcome)

	metrics.RecordTurn(string(outcome.Domain), string(outcome.Act), time.Since(start))
	metrics.RecordDeliveryLag(time.Since(turn.CreatedAt))
	log.Info("turn committed",
		zap.String("act", string(outcome.Act)),
		zap.String("domain", string(outcome.Domain)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// publishOutcome closes the typing indicator, then delivers the result. The
// assistant_message or error frame is always the last frame of the turn.
func (w *TurnWorker) publishOutcome(ctx context.Context, log *zap.Logger, threadID uuid.UUID, traceID string, turn *domain.Turn, outcome *supervisor.Outcome) {
	w.publish(ctx, log, domain.NewEnvelope(domain.EventTypingDone, threadID, w.schemaVersion, traceID, nil))
	w.publish(ctx, log, w.resultEnvelope(threadID, traceID, turn, outcome))
}

// resultEnvelope renders the outcome as the final frame of the turn
func (w *TurnWorker) resultEnvelope(threadID uuid.UUID, traceID string, turn *domain.Turn, outcome *supervisor.Outcome) domain.Envelope {
	if outcome.Act == domain.ActError {
		return domain.NewEnvelope(domain.EventError, threadID, w.schemaVersion, traceID, map[string]any{
			"text": outcome.ReplyText,
			"code": apperrors.CodeInternal,
		}).InReplyTo(turn.ID)
	}

	payload := map[string]any{
		"text": outcome.ReplyText,
		"act":  string(outcome.Act),
	}
	if len(outcome.Listings) > 0 {
		payload["listings"] = outcome.Listings
	}
	if outcome.Followup != "" {
		payload["followup"] = outcome.Followup
	}
	return domain.NewEnvelope(domain.EventAssistantMessage, threadID, w.schemaVersion, traceID, payload).InReplyTo(turn.ID)
}

func (w *TurnWorker) publish(ctx context.Context, log *zap.Logger, env domain.Envelope) {
	if err := w.publisher.PublishEnvelope(ctx, env); err != nil {
		// A dropped frame is recovered by rehydration on the next connect
		log.Warn("failed to publish envelope",
			zap.String("event", string(env.Event)),
			zap.Error(err),
		)
	}
}

// handleFailure retries transient errors and, once retries are exhausted,
// marks the turn failed and tells the client with an error envelope so it is
// never left waiting indefinitely.
func (w *TurnWorker) handleFailure(ctx context.Context, log *zap.Logger, t *asynq.Task, turn *domain.Turn, cause error) error {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		return cause
	}

	log.Error("turn failed permanently", zap.Error(cause))
	if err := w.turns.Fail(ctx, turn.ID); err != nil {
		log.Error("failed to mark turn failed", zap.Error(err))
	}

	env := domain.NewEnvelope(domain.EventError, turn.ThreadID, w.schemaVersion, id.NewTraceID(), map[string]any{
		"text": "Sorry, something went wrong while handling that message. Please try again.",
		"code": apperrors.CodeInternal,
	}).InReplyTo(turn.ID)
	w.publish(ctx, log, env)
	return nil
}
