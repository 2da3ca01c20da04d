package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dressinghub_storage_operations_total",
			Help: "Cache operations by backend, operation and status",
		},
		[]string{"backend", "operation", "status"},
	)

	droppedWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dressinghub_storage_dropped_writes_total",
			Help: "Queued cache writes dropped because the queue was full",
		},
	)

	writeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dressinghub_storage_write_queue_depth",
			Help: "Number of cache writes waiting for the background writer",
		},
	)
)

func observe(backend BackendKind, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(string(backend), operation, status).Inc()
}
