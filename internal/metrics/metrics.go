// Package metrics holds the process-wide prometheus instruments for the
// data layer: remote call outcomes, cache fallbacks and sync flags.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RemoteRequests
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeAuth     = "unauthorized"
	OutcomeRejected = "rejected"
)

var (
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_remote_requests_total",
			Help: "Remote media server calls by repository operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	CacheFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_cache_fallbacks_total",
			Help: "Reads served from the local cache after a remote failure",
		},
		[]string{"op"},
	)

	SyncFlagsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_sync_flags_raised_total",
			Help: "User data rows flagged for later sync after a failed push",
		},
		[]string{"op"},
	)

	SyncFlagsCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reel_sync_flags_cleared_total",
			Help: "User data rows successfully reconciled with the server",
		},
	)

	SegmentCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reel_segment_cache_hits_total",
			Help: "Segment lookups answered from the local cache",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reel_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
