package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type bookingMetrics struct {
	operations *prometheus.CounterVec
	txRetries  *prometheus.CounterVec
	txDuration *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

var (
	bookingOnce     sync.Once
	bookingRegistry *bookingMetrics
)

// Booking returns the lazily-initialised booking metrics registry.
func Booking() *bookingMetrics {
	bookingOnce.Do(func() {
		bookingRegistry = &bookingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "parking",
				Subsystem: "reservation",
				Name:      "operations_total",
				Help:      "Reservation operations segmented by operation and outcome code.",
			}, []string{"op", "outcome"}),
			txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "parking",
				Subsystem: "tx",
				Name:      "retries_total",
				Help:      "Transactions retried after a transient write conflict.",
			}, []string{"op"}),
			txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "parking",
				Subsystem: "tx",
				Name:      "duration_seconds",
				Help:      "Latency of a single transaction attempt.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "parking",
				Subsystem: "events",
				Name:      "deliveries_total",
				Help:      "Lifecycle event deliveries to notifiers segmented by sink and outcome.",
			}, []string{"sink", "outcome"}),
		}
		prometheus.MustRegister(
			bookingRegistry.operations,
			bookingRegistry.txRetries,
			bookingRegistry.txDuration,
			bookingRegistry.events,
		)
	})
	return bookingRegistry
}

// ObserveOperation records the outcome of a booking operation. Outcome is "ok"
// or the lower-cased error code.
func (m *bookingMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *bookingMetrics) ObserveTxRetry(op string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(op).Inc()
}

func (m *bookingMetrics) ObserveTxDuration(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *bookingMetrics) ObserveDelivery(sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.WithLabelValues(sink, outcome).Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
