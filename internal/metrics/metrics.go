// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal records total HTTP requests served by the
	// admin/introspection API.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// ItemsProcessedTotal records handler outcomes by type tag and
	// status (success/failed).
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Total number of work items processed by the dispatcher.",
		},
		[]string{"type_tag", "status"},
	)

	// PartitionLockContentionTotal is labelled for failed tryAcquire
	// calls by source (polling batches vs. push offers). It is
	// registered but no component in this repository increments it.
	PartitionLockContentionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partition_lock_contention_total",
			Help: "Total number of tryAcquire calls that found a partition already held.",
		},
		[]string{"source"},
	)

	// BackpressureDroppedTicksTotal is labelled for polling ticks
	// dropped because the previous fetch had not yet completed. It is
	// registered but the polling publisher does not increment it.
	BackpressureDroppedTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backpressure_dropped_ticks_total",
			Help: "Total number of polling ticks dropped under backpressure.",
		},
		[]string{"publisher"},
	)

	// InFlightHandlerInvocations is incremented by the dispatcher's
	// pre-observer and decremented by its success or error observer,
	// so it counts items waiting for a concurrency permit as well as
	// those running.
	InFlightHandlerInvocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "in_flight_handler_invocations",
			Help: "Current number of work items received by the dispatcher and not yet completed.",
		},
	)

	// PartitionRegistrySize is the gauge for the number of distinct
	// partition keys the lock registry tracks. It is registered but
	// nothing sets it; GET /stats reports that figure directly.
	PartitionRegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partition_registry_size",
			Help: "Number of distinct partition keys currently tracked by the lock registry.",
		},
	)
)
