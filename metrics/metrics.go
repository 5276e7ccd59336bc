// Package metrics exposes Prometheus instrumentation for queue
// instances, following the registry-injection pattern used across the
// pack (see kenchrcum-s3-encryption-gateway/internal/metrics): a struct
// of vectors built against a caller-supplied registry so tests can use
// an isolated registry instead of the global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms a queue.Queue reports
// through. Nil-safe: every Record* method tolerates a nil *Metrics so
// metrics remain an optional collaborator, matching the teacher's
// optional ipc.Publisher in main.go.
type Metrics struct {
	publishTotal            *prometheus.CounterVec
	consumeTotal            *prometheus.CounterVec
	fullTotal               prometheus.Counter
	emptyTotal              prometheus.Counter
	integrityErrorTotal     prometheus.Counter
	capacityExceededTotal   prometheus.Counter
	publishDuration         prometheus.Histogram
	consumeDuration         prometheus.Histogram
	reservationScanIterations prometheus.Histogram
}

// New creates a Metrics instance registered against the default
// Prometheus registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against reg,
// useful in tests to avoid collisions with the global registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		publishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shmqueue_publish_total",
			Help: "Number of successful Publish calls, by queue name.",
		}, []string{"queue"}),
		consumeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shmqueue_consume_total",
			Help: "Number of successful Consume calls, by queue name.",
		}, []string{"queue"}),
		fullTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "shmqueue_full_total",
			Help: "Number of Publish calls that returned ErrFull.",
		}),
		emptyTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "shmqueue_empty_total",
			Help: "Number of Consume calls that returned ErrEmpty.",
		}),
		integrityErrorTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "shmqueue_integrity_error_total",
			Help: "Number of Consume calls that returned ErrIntegrity.",
		}),
		capacityExceededTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "shmqueue_capacity_exceeded_total",
			Help: "Number of Publish calls rejected as ErrCapacityExceeded.",
		}),
		publishDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shmqueue_publish_duration_seconds",
			Help:    "Latency of successful Publish calls.",
			Buckets: prometheus.DefBuckets,
		}),
		consumeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shmqueue_consume_duration_seconds",
			Help:    "Latency of successful Consume calls.",
			Buckets: prometheus.DefBuckets,
		}),
		reservationScanIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shmqueue_reservation_scan_iterations",
			Help:    "Full pool scans performed while reserving blocks for one Publish call.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}
}

func (m *Metrics) RecordPublish(queue string, seconds float64) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(queue).Inc()
	m.publishDuration.Observe(seconds)
}

func (m *Metrics) RecordConsume(queue string, seconds float64) {
	if m == nil {
		return
	}
	m.consumeTotal.WithLabelValues(queue).Inc()
	m.consumeDuration.Observe(seconds)
}

func (m *Metrics) RecordFull() {
	if m == nil {
		return
	}
	m.fullTotal.Inc()
}

func (m *Metrics) RecordEmpty() {
	if m == nil {
		return
	}
	m.emptyTotal.Inc()
}

func (m *Metrics) RecordIntegrityError() {
	if m == nil {
		return
	}
	m.integrityErrorTotal.Inc()
}

func (m *Metrics) RecordCapacityExceeded() {
	if m == nil {
		return
	}
	m.capacityExceededTotal.Inc()
}

func (m *Metrics) RecordReservationScans(n int) {
	if m == nil {
		return
	}
	m.reservationScanIterations.Observe(float64(n))
}
