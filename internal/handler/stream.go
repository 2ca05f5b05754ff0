package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/gateway"
	"github.com/easyislanders/concierge/internal/middleware"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
)

// RehydrationBuilder builds the first frame of a stream
type RehydrationBuilder interface {
	Build(ctx context.Context, threadID uuid.UUID, traceID string) (domain.Envelope, error)
}

// StreamHandler handles the per-thread SSE delivery stream
type StreamHandler struct {
	hub           *gateway.Hub
	threads       ThreadStore
	rehydrator    RehydrationBuilder
	schemaVersion string
	heartbeat     time.Duration
	logger        *zap.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(
	hub *gateway.Hub,
	threads ThreadStore,
	rehydrator RehydrationBuilder,
	schemaVersion string,
	heartbeat time.Duration,
	logger *zap.Logger,
) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &StreamHandler{
		hub:           hub,
		threads:       threads,
		rehydrator:    rehydrator,
		schemaVersion: schemaVersion,
		heartbeat:     heartbeat,
		logger:        logger,
	}
}

// Stream handles GET /v1/threads/:id/stream. The rehydration frame is always
// written first so a reconnecting client rebuilds state before any live
// envelope arrives.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
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

	rehydration, err := h.rehydrator.Build(c.Context(), threadID, middleware.GetRequestID(c))
	if err != nil {
		return respondError(c, err)
	}
	// The first frame goes through the same schema gate as live envelopes;
	// an invalid frame is dropped and counted, never sent
	rehydrationOK := h.validateRehydration(rehydration)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(threadID)

	h.logger.Info("stream connected",
		zap.String("thread_id", threadID.String()),
		zap.Uint64("socket_id", sub.SocketID),
	)

	ctx := c.Context()
	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)

		if rehydrationOK {
			if err := writeSSE(w, rehydration); err != nil {
				return
			}
		}

		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case env, ok := <-sub.Channel:
				if !ok {
					return
				}
				if err := writeSSE(w, env); err != nil {
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-sub.Done:
				// Superseded by a newer connection to the same thread
				return

			case <-ctx.Done():
				return
			}
		}
	}))

	return nil
}

// validateRehydration checks the rehydration frame against the stream's
// declared schema version
func (h *StreamHandler) validateRehydration(env domain.Envelope) bool {
	if err := gateway.ValidateEnvelope(env, h.schemaVersion); err != nil {
		metrics.RecordEnvelopeValidationFailure()
		h.logger.Error("rehydration frame failed schema validation",
			zap.String("thread_id", env.ThreadID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

// writeSSE writes one envelope as a server-sent event
func writeSSE(w *bufio.Writer, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", env.Event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	return w.Flush()
}
