package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/logger"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
)

// Subscriber is one client connection to a thread's delivery stream
type Subscriber struct {
	// SocketID is monotonically increasing across the process; a reconnect
	// gets a higher SocketID and supersedes the old connection
	SocketID uint64
	ThreadID uuid.UUID
	Channel  chan domain.Envelope
	Done     chan struct{}
}

// Hub fans envelopes out to per-thread subscribers. Each thread has exactly
// one active subscriber: subscribing again supersedes the previous
// connection, and writes destined for a superseded socket are dropped. That
// is the single-writer invariant that keeps delivery ordered across
// reconnect races.
type Hub struct {
	schemaVersion string
	channelBuffer int

	socketSeq atomic.Uint64

	mu      sync.RWMutex
	threads map[uuid.UUID]*Subscriber
}

// NewHub creates a new delivery hub
func NewHub(schemaVersion string, channelBuffer int) *Hub {
	if channelBuffer <= 0 {
		channelBuffer = 64
	}
	return &Hub{
		schemaVersion: schemaVersion,
		channelBuffer: channelBuffer,
		threads:       make(map[uuid.UUID]*Subscriber),
	}
}

// Subscribe attaches a connection to a thread's stream, superseding any
// previous connection to the same thread
func (h *Hub) Subscribe(threadID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		SocketID: h.socketSeq.Add(1),
		ThreadID: threadID,
		Channel:  make(chan domain.Envelope, h.channelBuffer),
		Done:     make(chan struct{}),
	}

	h.mu.Lock()
	prev := h.threads[threadID]
	h.threads[threadID] = sub
	h.mu.Unlock()

	if prev != nil {
		close(prev.Done)
		metrics.RecordEnvelopeDropped("superseded")
		logger.WithThreadID(threadID.String()).Info("connection superseded",
			zap.Uint64("old_socket_id", prev.SocketID),
			zap.Uint64("new_socket_id", sub.SocketID),
		)
	}

	metrics.StreamConnected()
	return sub
}

// Unsubscribe detaches a connection. A socket that was already superseded
// leaves the current subscriber untouched.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	current := h.threads[sub.ThreadID]
	if current != nil && current.SocketID == sub.SocketID {
		delete(h.threads, sub.ThreadID)
		close(current.Done)
	}
	h.mu.Unlock()

	metrics.StreamDisconnected()
}

// Send validates and delivers an envelope to the thread's current
// subscriber. Invalid frames are dropped and counted, never sent malformed.
// With no subscriber attached the frame is dropped; the client catches up
// through the rehydration frame on its next connect.
func (h *Hub) Send(env domain.Envelope) {
	if err := ValidateEnvelope(env, h.schemaVersion); err != nil {
		metrics.RecordEnvelopeValidationFailure()
		logger.WithThreadID(env.ThreadID.String()).Error("envelope failed validation",
			zap.String("event", string(env.Event)),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	sub := h.threads[env.ThreadID]
	h.mu.RUnlock()

	if sub == nil {
		metrics.RecordEnvelopeDropped("no_subscriber")
		return
	}

	select {
	case <-sub.Done:
		// Late write to a superseded socket
		metrics.RecordEnvelopeDropped("superseded")
	case sub.Channel <- env:
		metrics.RecordEnvelopeSent(string(env.Event))
	default:
		metrics.RecordEnvelopeDropped("buffer_full")
		logger.WithThreadID(env.ThreadID.String()).Warn("subscriber buffer full, frame dropped",
			zap.String("event", string(env.Event)),
		)
	}
}

// SubscriberCount returns the number of attached connections
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads)
}
