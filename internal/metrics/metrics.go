package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts webhook requests by receiver mode and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_receiver_requests_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"mode", "outcome"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_receiver_processing_seconds",
			Help:    "Time spent verifying and storing a webhook delivery",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_receiver_dispatch_total",
			Help: "Handler executions by event type and status",
		},
		[]string{"event_type", "status"},
	)

	WorkerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_receiver_worker_queue_depth",
			Help: "Events waiting for a dispatch worker",
		},
	)
)
