package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/domain"
	"github.com/easyislanders/concierge/internal/pkg/circuitbreaker"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/logger"
	"github.com/easyislanders/concierge/internal/pkg/metrics"
)

// BreakerClient wraps a Client with a circuit breaker. While the circuit is
// open, Search returns a synthetic degraded result without touching the
// network, so the conversation can answer from context instead of stalling.
type BreakerClient struct {
	inner   Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakerClient creates a breaker-protected search client
func NewBreakerClient(inner Client, cfg config.SearchConfig) *BreakerClient {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "listing-search",
		MaxFailures: cfg.BreakerMaxFailures,
		Cooldown:    cfg.BreakerCooldown(),
		MaxProbes:   1,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.RecordBreakerTransition(from.String(), to.String())
			logger.Warn("search circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerClient{inner: inner, breaker: breaker}
}

// Search queries the listing repository through the circuit breaker
func (c *BreakerClient) Search(ctx context.Context, filter domain.SearchFilter) (*domain.SearchResult, error) {
	start := time.Now()

	result, err := circuitbreaker.ExecuteWithResult(c.breaker, ctx, func() (*domain.SearchResult, error) {
		return c.inner.Search(ctx, filter)
	})
	if err == nil {
		metrics.RecordSearchCall("success", time.Since(start))
		return result, nil
	}

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		metrics.RecordSearchRejected()
		return &domain.SearchResult{Degraded: true}, nil
	}

	if apperrors.IsSearchDegraded(err) {
		metrics.RecordSearchCall("timeout", time.Since(start))
	} else {
		metrics.RecordSearchCall("error", time.Since(start))
	}
	return nil, err
}

// State exposes the breaker state for health reporting
func (c *BreakerClient) State() circuitbreaker.State {
	return c.breaker.State()
}
