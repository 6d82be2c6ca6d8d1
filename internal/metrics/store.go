package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Vector store and upsert pipeline metrics.
var (
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Vector store operations by backend, operation and status",
		},
		[]string{"backend", "op", "status"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Vector store operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "op"},
	)

	DocumentsUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_upserted_total",
			Help:      "Documents written through POST /upsert-text",
		},
	)

	UpsertFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upsert_failures_total",
			Help:      "Failed upsert requests by error kind",
		},
		[]string{"kind"},
	)
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers vector store and pipeline metrics. Must be called once from main.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreOperationsTotal)
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(DocumentsUpsertedTotal)
	prometheus.MustRegister(UpsertFailuresTotal)
	storeMetricsRegistered = true
}

// ObserveStoreOp records one store call. Unregistered collectors still count,
// so adapters can call it unconditionally.
func ObserveStoreOp(backend, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, op, status).Inc()
	StoreOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
