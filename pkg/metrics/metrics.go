package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fact store metrics
	FactsSavedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factengine_facts_saved_total",
			Help: "Total number of facts newly persisted, by type",
		},
		[]string{"type"},
	)

	FactsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factengine_facts_rejected_total",
			Help: "Total number of facts rejected by authorization, by type",
		},
		[]string{"type"},
	)

	// Observer metrics
	ObserversActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "factengine_observers_active",
			Help: "Total number of live observers",
		},
	)

	ObserverDispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factengine_observer_dispatch_duration_seconds",
			Help:    "Time taken to re-evaluate and dispatch one notification batch to an observer",
			Buckets: prometheus.DefBuckets,
		},
	)

	ObserverTuplesAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "factengine_observer_tuples_added_total",
			Help: "Total number of tuples reported via added callbacks across all observers",
		},
	)

	ObserverTuplesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "factengine_observer_tuples_removed_total",
			Help: "Total number of tuples reported via removed callbacks across all observers",
		},
	)

	// Fork/outbox metrics
	OutboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "factengine_outbox_depth",
			Help: "Number of envelopes currently queued in the persistent fork's outbox",
		},
	)

	ForkDrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "factengine_fork_drain_duration_seconds",
			Help:    "Time taken for one outbox drain cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForkDrainCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "factengine_fork_drain_cycles_total",
			Help: "Total number of outbox drain cycles completed",
		},
	)

	ForkSendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "factengine_fork_send_failures_total",
			Help: "Total number of remote send attempts that exhausted retries during a drain cycle",
		},
	)

	// Subscriber/feed metrics
	FeedLagSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "factengine_feed_lag_seconds",
			Help: "Feed lag in seconds; set to 0 each time a subscriber ingests a feed batch and not updated between batches",
		},
		[]string{"feed"},
	)

	FeedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factengine_feed_reconnects_total",
			Help: "Total number of subscriber reconnects, by feed",
		},
		[]string{"feed"},
	)

	FeedIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factengine_feed_ingested_total",
			Help: "Total number of novel facts ingested from a remote feed, by feed",
		},
		[]string{"feed"},
	)
)

func init() {
	prometheus.MustRegister(FactsSavedTotal)
	prometheus.MustRegister(FactsRejectedTotal)
	prometheus.MustRegister(ObserversActive)
	prometheus.MustRegister(ObserverDispatchDuration)
	prometheus.MustRegister(ObserverTuplesAdded)
	prometheus.MustRegister(ObserverTuplesRemoved)
	prometheus.MustRegister(OutboxDepth)
	prometheus.MustRegister(ForkDrainDuration)
	prometheus.MustRegister(ForkDrainCyclesTotal)
	prometheus.MustRegister(ForkSendFailuresTotal)
	prometheus.MustRegister(FeedLagSeconds)
	prometheus.MustRegister(FeedReconnectsTotal)
	prometheus.MustRegister(FeedIngestedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
