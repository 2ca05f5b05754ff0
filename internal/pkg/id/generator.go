package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceIDLength is the length of a W3C-compliant trace ID (32 hex chars = 16 bytes)
const TraceIDLength = 16

var (
	randReader = rand.Reader

	// traceIDPool reuses buffers for trace ID generation (16 bytes)
	traceIDPool = sync.Pool{
		New: func() any {
			b := make([]byte, TraceIDLength)
			return &b
		},
	}
)

// NewTraceID generates a new W3C-compliant trace ID (32 hex characters)
func NewTraceID() string {
	bufPtr := traceIDPool.Get().(*[]byte)
	defer traceIDPool.Put(bufPtr)
	buf := *bufPtr

	if _, err := randReader.Read(buf); err != nil {
		// Fallback to time-based ID if random fails
		return fmt.Sprintf("%016x%016x", time.Now().UnixNano(), time.Now().UnixNano())
	}

	return hex.EncodeToString(buf)
}

// NewUUID generates a new UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// ValidateTraceID validates a trace ID format
func ValidateTraceID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// ValidateUUID validates a UUID format
func ValidateUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ParseUUID parses and validates a UUID string
func ParseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// ParseUUIDOrNil parses a UUID string, returning uuid.Nil on error.
// This is a safe alternative for user input that doesn't require error handling.
func ParseUUIDOrNil(id string) uuid.UUID {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil
	}
	return u
}
