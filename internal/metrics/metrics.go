package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buddy",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	extractionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buddy",
			Name:      "extraction_requests_total",
			Help:      "Count of scheduling extraction attempts by outcome.",
		},
		[]string{"outcome"},
	)

	extractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buddy",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent on a provider extraction call.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		},
	)

	remindersTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buddy",
			Name:      "reminders_triggered_total",
			Help:      "Count of reminders triggered by channel outcome.",
		},
		[]string{"channel"},
	)

	remindersDismissed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buddy",
			Name:      "reminders_dismissed_total",
			Help:      "Count of reminders dismissed by users.",
		},
	)

	remindersCleanedUp = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buddy",
			Name:      "reminders_cleaned_up_total",
			Help:      "Count of old dismissed reminders removed.",
		},
	)

	dueQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buddy",
			Name:      "reminders_due_queue_size",
			Help:      "Number of due reminders found in the last poll cycle.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, extractionRequests, extractionDuration,
			remindersTriggered, remindersDismissed, remindersCleanedUp, dueQueueSize)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncExtraction(outcome string) {
	extractionRequests.WithLabelValues(outcome).Inc()
}

func ObserveExtractionDuration(seconds float64) {
	extractionDuration.Observe(seconds)
}

func IncTriggered(channel string) {
	remindersTriggered.WithLabelValues(channel).Inc()
}

func IncDismissed() {
	remindersDismissed.Inc()
}

func IncCleanedUp(count int64) {
	remindersCleanedUp.Add(float64(count))
}

func SetDueQueueSize(size int) {
	dueQueueSize.Set(float64(size))
}
