// Package metrics exposes Prometheus instrumentation for the AniList client,
// the response cache and section loading.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GraphQL client
	AniListRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_anilist_requests_total",
			Help: "AniList GraphQL requests by query and outcome kind",
		},
		[]string{"query", "outcome"},
	)

	AniListRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "animekun_anilist_request_duration_seconds",
			Help:    "Duration of AniList GraphQL round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// Response cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_response_cache_hits_total",
			Help: "Response cache hits by query",
		},
		[]string{"query"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_response_cache_misses_total",
			Help: "Response cache misses by query",
		},
		[]string{"query"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "animekun_response_cache_evictions_total",
			Help: "Entries evicted from the response cache after a quota failure",
		},
	)

	CacheWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "animekun_response_cache_write_failures_total",
			Help: "Response cache writes that failed even after eviction",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "animekun_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Sections
	SectionLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_section_loads_total",
			Help: "Section loads by section id and result (ok, error, empty, stale)",
		},
		[]string{"section", "result"},
	)

	CalendarLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_calendar_loads_total",
			Help: "Weekly calendar loads by result",
		},
		[]string{"result"},
	)

	// Transport
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "animekun_socketio_clients",
			Help: "Currently connected Socket.IO clients",
		},
	)

	OpenSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "animekun_sessions",
			Help: "Open view sessions by owner (socket or rest)",
		},
		[]string{"owner"},
	)

	SessionsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "animekun_sessions_reclaimed_total",
			Help: "REST view sessions dropped by reason (idle or capacity)",
		},
		[]string{"reason"},
	)

	FavoritesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "animekun_favorites",
			Help: "Number of favorited media ids",
		},
	)
)
