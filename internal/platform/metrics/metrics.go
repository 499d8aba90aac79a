package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushr_push_deliveries_total",
			Help: "Push delivery attempts by outcome",
		},
		[]string{"result"}, // "sent", "transient", "permanent"
	)

	PushPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushr_push_pruned_total",
			Help: "Subscriptions removed after a permanent delivery failure",
		},
	)

	PushDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushr_push_dispatch_duration_seconds",
			Help:    "Wall time of one broadcast to all subscribers",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pushr_subscribers",
			Help: "Subscriptions in the store after the last mutation",
		},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushr_events_ingested_total",
			Help: "Behavioral events received by outcome",
		},
		[]string{"result"}, // "stored", "suppressed"
	)

	LeadsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushr_leads_submitted_total",
			Help: "Lead submissions by outcome",
		},
		[]string{"result"}, // "created", "duplicate"
	)

	AnalyticsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pushr_analytics_report_duration_seconds",
			Help:    "Time to compute an analytics report",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period"},
	)

	ConversionsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushr_conversions_reported_total",
			Help: "Conversion events forwarded to the reporting sink",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pushr_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushr_http_requests_total",
			Help: "HTTP requests by route and status class",
		},
		[]string{"route", "status"},
	)
)
