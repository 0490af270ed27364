// Package metrics defines the Prometheus collectors for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Demo engine metrics
var (
	// DemoActiveSessions tracks the number of live demo sessions.
	DemoActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "demo_active_sessions",
			Help: "Number of live demo sessions",
		},
	)

	// DemoConnectedClients tracks live streaming connections across all sessions.
	DemoConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "demo_connected_clients",
			Help: "Live demo streaming connections across all sessions",
		},
	)

	// DemoSessionsEvicted counts sessions evicted by reason (lru, ttl, idle).
	DemoSessionsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_sessions_evicted_total",
			Help: "Demo sessions evicted by reason",
		},
		[]string{"reason"},
	)

	// DemoCapacityRejections counts registration attempts rejected by cap (sessions, global, per_session).
	DemoCapacityRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_capacity_rejections_total",
			Help: "Demo registrations rejected due to capacity limits",
		},
		[]string{"limit"},
	)

	// DemoSnapshotsSent counts snapshots enqueued to connections by demo type.
	DemoSnapshotsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_snapshots_sent_total",
			Help: "Demo snapshots enqueued to connections by demo type",
		},
		[]string{"demo_type"},
	)

	// DemoMessagesDropped counts messages discarded by the drop-oldest overflow policy.
	DemoMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "demo_messages_dropped_total",
			Help: "Buffered demo messages discarded in favor of newer ones",
		},
	)

	// DemoDegradedConnections tracks connections currently flagged as degraded.
	DemoDegradedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "demo_degraded_connections",
			Help: "Connections whose outbound buffer has overflowed at least once",
		},
	)

	// DemoTransportFailures counts send failures that removed a connection.
	DemoTransportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "demo_transport_failures_total",
			Help: "Connection removals caused by transport send failures",
		},
	)

	// DemoSimulatorTicks counts simulator ticks by demo type.
	DemoSimulatorTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_simulator_ticks_total",
			Help: "Simulator ticks delivered by demo type",
		},
		[]string{"demo_type"},
	)

	// DemoPanicsRecovered counts panics recovered at demo task boundaries.
	DemoPanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demo_panics_recovered_total",
			Help: "Panics recovered at demo task boundaries",
		},
		[]string{"task"},
	)

	// DemoCapacityViolations counts observed admission-control invariant breaks.
	DemoCapacityViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "demo_capacity_violations_total",
			Help: "Cap exceeded despite admission control (programming fault)",
		},
	)
)

// HTTP and site metrics
var (
	// HTTPRequestDuration tracks request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route", "status"},
	)

	// ContactSubmissions counts contact form submissions by outcome.
	ContactSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by outcome (accepted, throttled, invalid)",
		},
		[]string{"outcome"},
	)

	// ContactMailFailures counts notification mails that could not be sent.
	ContactMailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_mail_failures_total",
			Help: "Contact notification mails that could not be sent",
		},
	)

	// BlogCacheHits counts blog post cache hits and misses.
	BlogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_cache_requests_total",
			Help: "Blog post cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
)

// Redis metrics
var (
	// RedisOpsTotal counts Redis operations by command and status.
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Redis operations by command and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency by command.
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors counts failed Redis connection attempts.
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Failed Redis connection attempts",
		},
	)
)
