package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn metrics
	turnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_turns_processed_total",
			Help: "Total number of turns processed, by domain and supervisor act",
		},
		[]string{"domain", "act"},
	)

	turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_turn_duration_seconds",
			Help:    "End-to-end turn processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"domain"},
	)

	idempotentHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_idempotent_submits_total",
			Help: "Total number of duplicate turn submissions short-circuited by the idempotency key",
		},
	)

	discardedTurns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_turns_discarded_total",
			Help: "Total number of turns discarded by a stop control message before dispatch",
		},
	)

	// Memory fusion metrics
	fusionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_memory_fusion_duration_seconds",
			Help:    "Total memory fusion duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, .8, 1},
		},
	)

	fusionSourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_memory_source_duration_seconds",
			Help:    "Per-source memory read duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .2, .3, .5},
		},
		[]string{"source"},
	)

	fusionSourceTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_memory_source_timeouts_total",
			Help: "Total number of memory source reads that missed their timeout and contributed an empty result",
		},
		[]string{"source"},
	)

	// Listing search metrics
	searchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_search_calls_total",
			Help: "Total number of listing search call outcomes",
		},
		[]string{"outcome"},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_search_duration_seconds",
			Help:    "Listing search call latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
	)

	breakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_search_breaker_transitions_total",
			Help: "Total number of search circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	breakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concierge_search_breaker_state",
			Help: "Current search circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// Gateway metrics
	envelopesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_envelopes_sent_total",
			Help: "Total number of envelopes delivered to clients, by event",
		},
		[]string{"event"},
	)

	envelopesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_envelopes_dropped_total",
			Help: "Total number of envelopes dropped before delivery",
		},
		[]string{"reason"},
	)

	envelopeValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_envelope_validation_failures_total",
			Help: "Total number of outbound envelopes rejected by schema validation",
		},
	)

	activeStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concierge_active_streams",
			Help: "Number of currently connected delivery streams",
		},
	)

	deliveryLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_delivery_lag_seconds",
			Help:    "Lag between turn commit and envelope delivery in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// RecordTurn records a processed turn
func RecordTurn(domain, act string, duration time.Duration) {
	turnsProcessed.WithLabelValues(domain, act).Inc()
	turnDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordIdempotentHit records a duplicate submission short-circuit
func RecordIdempotentHit() {
	idempotentHits.Inc()
}

// RecordDiscardedTurn records a turn discarded before dispatch
func RecordDiscardedTurn() {
	discardedTurns.Inc()
}

// RecordFusion records total memory fusion duration
func RecordFusion(duration time.Duration) {
	fusionDuration.Observe(duration.Seconds())
}

// RecordFusionSource records a single memory source read
func RecordFusionSource(source string, duration time.Duration, timedOut bool) {
	fusionSourceDuration.WithLabelValues(source).Observe(duration.Seconds())
	if timedOut {
		fusionSourceTimeouts.WithLabelValues(source).Inc()
	}
}

// RecordSearchCall records a listing search call outcome
func RecordSearchCall(outcome string, duration time.Duration) {
	searchCalls.WithLabelValues(outcome).Inc()
	searchDuration.Observe(duration.Seconds())
}

// RecordSearchRejected records a call rejected by the open breaker (no network attempt)
func RecordSearchRejected() {
	searchCalls.WithLabelValues("circuit_open").Inc()
}

// RecordBreakerTransition records a circuit breaker state change
func RecordBreakerTransition(from, to string) {
	breakerTransitions.WithLabelValues(from, to).Inc()
	switch to {
	case "closed":
		breakerState.Set(0)
	case "open":
		breakerState.Set(1)
	case "half-open":
		breakerState.Set(2)
	}
}

// RecordEnvelopeSent records a delivered envelope
func RecordEnvelopeSent(event string) {
	envelopesSent.WithLabelValues(event).Inc()
}

// RecordEnvelopeDropped records a dropped envelope
func RecordEnvelopeDropped(reason string) {
	envelopesDropped.WithLabelValues(reason).Inc()
}

// RecordEnvelopeValidationFailure records an outbound envelope rejected by schema validation
func RecordEnvelopeValidationFailure() {
	envelopeValidationFailures.Inc()
}

// StreamConnected tracks a new delivery stream
func StreamConnected() {
	activeStreams.Inc()
}

// StreamDisconnected tracks a closed delivery stream
func StreamDisconnected() {
	activeStreams.Dec()
}

// RecordDeliveryLag records commit-to-delivery lag
func RecordDeliveryLag(lag time.Duration) {
	deliveryLag.Observe(lag.Seconds())
}
