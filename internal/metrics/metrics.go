// Package metrics defines the Prometheus collectors for the sync engine.
// Collectors are package-level and auto-registered on the default registry,
// exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by event type and outcome",
	}, []string{"event_type", "outcome"})

	WebhookProcessingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_latency_seconds",
		Help:    "Latency of webhook event processing",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})

	SignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Webhook deliveries rejected for a bad or missing signature",
	})

	OrdersMirroredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_mirrored_total",
		Help: "Order upserts by result (inserted or updated)",
	}, []string{"result"})

	OrderLineGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_line_gaps_total",
		Help: "Order lines skipped because their catalog item was not mirrored yet",
	})

	GapsBackfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_line_gaps_backfilled_total",
		Help: "Skipped order lines restored after their catalog item arrived",
	})

	UnresolvedGaps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "order_line_gaps_unresolved",
		Help: "Order line gaps still waiting for their catalog item",
	})

	InventoryObservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_observations_total",
		Help: "Stock observations appended to the ledger by source",
	}, []string{"source"})

	ReconciliationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_runs_total",
		Help: "Reconciliation checks by check type and resulting status",
	}, []string{"check_type", "status"})

	ReconciliationMismatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reconciliation_mismatches",
		Help: "Mismatch count found by the most recent check of each type",
	}, []string{"check_type"})

	ReconciliationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconciliation_duration_seconds",
		Help:    "Wall time of reconciliation checks",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"check_type"})

	RefreshRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_runs_total",
		Help: "Full refresh cycles by outcome",
	}, []string{"status"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "refresh_duration_seconds",
		Help:    "Wall time of full refresh cycles",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	EnrichmentCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_calls_total",
		Help: "Discogs lookups by outcome",
	}, []string{"outcome"})

	EnrichmentQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "enrichment_queue_depth",
		Help: "Calls waiting in the rate limiter queue",
	})

	CacheSnapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_snapshot_rebuilds_total",
		Help: "Catalog snapshot rebuilds written to Redis",
	})

	CacheSnapshotProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cache_snapshot_products",
		Help: "Product count in the most recent catalog snapshot",
	})

	CacheReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_reads_total",
		Help: "Storefront snapshot reads by hit or miss",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
