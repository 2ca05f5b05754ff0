package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/easyislanders/concierge/internal/domain"
)

// ShortTermBuffer keeps the last few turns of each thread in process memory.
// Reads never block on I/O, so the buffer always contributes to fusion even
// when the durable sources are slow.
type ShortTermBuffer struct {
	mu      sync.RWMutex
	depth   int
	threads map[uuid.UUID][]domain.BufferedTurn
}

// NewShortTermBuffer creates a buffer holding depth turns per thread
func NewShortTermBuffer(depth int) *ShortTermBuffer {
	if depth <= 0 {
		depth = 10
	}
	return &ShortTermBuffer{
		depth:   depth,
		threads: make(map[uuid.UUID][]domain.BufferedTurn),
	}
}

// Append records a turn, evicting the oldest entry once depth is reached
func (b *ShortTermBuffer) Append(threadID uuid.UUID, turn domain.BufferedTurn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := append(b.threads[threadID], turn)
	if len(entries) > b.depth {
		entries = entries[len(entries)-b.depth:]
	}
	b.threads[threadID] = entries
}

// Recent returns a copy of the thread's buffer, oldest first
func (b *ShortTermBuffer) Recent(threadID uuid.UUID) []domain.BufferedTurn {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.threads[threadID]
	if len(entries) == 0 {
		return nil
	}
	out := make([]domain.BufferedTurn, len(entries))
	copy(out, entries)
	return out
}

// Drop releases a thread's buffer
func (b *ShortTermBuffer) Drop(threadID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.threads, threadID)
}
