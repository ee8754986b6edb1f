package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AvailabilityResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_resolutions_total",
		Help: "Total number of availability resolutions",
	}, []string{"step"})

	SelectionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "selection_errors_total",
		Help: "Total number of rejected selection transitions",
	}, []string{"kind"})

	CartReconciliationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_reconciliations_total",
		Help: "Total number of cart reconciliations",
	})

	CartQuantityClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_quantity_clamps_total",
		Help: "Total number of cart lines clamped down to live stock",
	})

	CartLinesUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_lines_unavailable_total",
		Help: "Total number of cart lines flagged unavailable during reconciliation",
	})

	InventoryMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_mutations_total",
		Help: "Total number of seller inventory mutations",
	}, []string{"operation"})

	InventoryMutationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_mutations_failed_total",
		Help: "Total number of failed seller inventory mutations",
	}, []string{"operation", "reason"})

	InventoryBatchSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_batch_skipped_total",
		Help: "Total number of ids skipped during batch mutations",
	})

	InventoryMutationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_mutation_latency_seconds",
		Help:    "Latency of seller inventory mutations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	StockCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_cache_misses_total",
		Help: "Total number of live-stock cache misses falling back to the store",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
