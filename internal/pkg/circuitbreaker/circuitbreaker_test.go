package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failure")

func failing() error { return errBackend }
func succeeding() error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 5, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := cb.Execute(ctx, failing)
		require.ErrorIs(t, err, errBackend)
		assert.Equal(t, StateClosed, cb.State())
	}

	err := cb.Execute(ctx, failing)
	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls fail fast without invoking the function
	called := false
	err = cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureRun(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 3, Cooldown: time.Minute})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, 0, cb.Failures())

	// Two more failures are not enough to open after the reset
	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ClosesAfterSuccessfulProbe(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Cooldown: 10 * time.Millisecond})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(ctx, succeeding)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ReopensAfterFailedProbe(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Cooldown: 10 * time.Millisecond})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_NotifiesStateChanges(t *testing.T) {
	type change struct{ from, to State }
	var changes []change

	cb := New(Config{
		Name:        "test",
		MaxFailures: 1,
		Cooldown:    10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "test", name)
			changes = append(changes, change{from, to})
		},
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Execute(ctx, succeeding))

	require.Len(t, changes, 3)
	assert.Equal(t, change{StateClosed, StateOpen}, changes[0])
	assert.Equal(t, change{StateOpen, StateHalfOpen}, changes[1])
	assert.Equal(t, change{StateHalfOpen, StateClosed}, changes[2])
}

func TestCircuitBreaker_ExecuteWithResult(t *testing.T) {
	cb := New(DefaultConfig("test"))
	ctx := context.Background()

	result, err := ExecuteWithResult(cb, ctx, func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	_, err = ExecuteWithResult(cb, ctx, func() (string, error) {
		return "", errBackend
	})
	assert.ErrorIs(t, err, errBackend)
}

func TestCircuitBreaker_ContextCancelled(t *testing.T) {
	cb := New(DefaultConfig("test"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
