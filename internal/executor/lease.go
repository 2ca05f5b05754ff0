package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "concierge:lease:thread:"

// releaseScript deletes the lease only when the caller still owns it, so an
// expired lease re-acquired by another worker is never released by the old
// owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ThreadLease serializes turn processing per thread. Holding the lease makes
// the worker the single writer of the thread's state for one turn.
type ThreadLease struct {
	client *redis.Client
	ttl    time.Duration
}

// NewThreadLease creates a new thread lease manager
func NewThreadLease(client *redis.Client, ttl time.Duration) *ThreadLease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ThreadLease{client: client, ttl: ttl}
}

// Acquire tries to take the thread's lease. It returns the release token on
// success and ok=false when another worker holds the lease.
func (l *ThreadLease) Acquire(ctx context.Context, threadID uuid.UUID) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, leaseKeyPrefix+threadID.String(), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire thread lease: %w", err)
	}
	return token, ok, nil
}

// Release gives the lease back if the token still owns it
func (l *ThreadLease) Release(ctx context.Context, threadID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{leaseKeyPrefix + threadID.String()}, token).Err(); err != nil {
		return fmt.Errorf("failed to release thread lease: %w", err)
	}
	return nil
}
