// Package observability holds the service-wide Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartfit"

var (
	recordPersistGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record written, by kind.",
	}, []string{"kind"})

	aggregationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "passes_total",
		Help:      "Summary recomputations grouped by outcome (emitted, suppressed).",
	}, []string{"outcome"})

	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "aggregate",
		Name:      "active_subscriptions",
		Help:      "Number of running summary subscriptions.",
	})

	suggestionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "suggestions",
		Name:      "requests_total",
		Help:      "Suggestion requests grouped by source (cache, remote, fallback).",
	}, []string{"source"})

	sensorReadingCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sensor",
		Name:      "readings_total",
		Help:      "Step sensor readings accepted.",
	})

	sensorFlushGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sensor",
		Name:      "last_flush_timestamp_seconds",
		Help:      "Unix timestamp of the most recent sensor step flush.",
	})

	eventWriteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "writes_total",
		Help:      "Change event batches written to Kafka grouped by topic and outcome.",
	}, []string{"topic", "outcome"})

	purgedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "step_records_purged_total",
		Help:      "Step records removed by the retention job.",
	})
)

func init() {
	prometheus.MustRegister(
		recordPersistGauge,
		aggregationCounter,
		activeSubscriptions,
		suggestionCounter,
		sensorReadingCounter,
		sensorFlushGauge,
		eventWriteCounter,
		purgedCounter,
	)
}

// RecordPersisted updates the persistence watermark for a record kind.
func RecordPersisted(kind string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.WithLabelValues(kind).Set(float64(ts.Unix()))
}

// RecordAggregation counts one summary recomputation.
func RecordAggregation(emitted bool) {
	if emitted {
		aggregationCounter.WithLabelValues("emitted").Inc()
		return
	}
	aggregationCounter.WithLabelValues("suppressed").Inc()
}

// SubscriptionStarted and SubscriptionEnded track live summary streams.
func SubscriptionStarted() { activeSubscriptions.Inc() }

func SubscriptionEnded() { activeSubscriptions.Dec() }

// RecordSuggestionSource counts where a suggestion response came from.
func RecordSuggestionSource(source string) {
	suggestionCounter.WithLabelValues(source).Inc()
}

// RecordSensorReading counts an accepted sensor reading.
func RecordSensorReading() {
	sensorReadingCounter.Inc()
}

// RecordSensorFlush updates the flush watermark.
func RecordSensorFlush(ts time.Time) {
	if ts.IsZero() {
		return
	}
	sensorFlushGauge.Set(float64(ts.Unix()))
}

// RecordEventWrite counts a Kafka write attempt for a topic.
func RecordEventWrite(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventWriteCounter.WithLabelValues(topic, outcome).Inc()
}

// RecordPurged adds to the purged step records counter.
func RecordPurged(n int64) {
	if n <= 0 {
		return
	}
	purgedCounter.Add(float64(n))
}
