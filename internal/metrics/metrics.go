package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medcenter"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	wizardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard step transitions by flow, direction and outcome.",
		},
		[]string{"flow", "direction", "outcome"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Booking submissions by flow and outcome.",
		},
		[]string{"flow", "outcome"},
	)

	contactMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_messages_total",
			Help:      "Contact form messages by outcome.",
		},
		[]string{"outcome"},
	)

	syncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sheets_sync_queue_depth",
			Help:      "Tasks waiting in the sheets sync worker.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, wizardTransitions, submissions, contactMessages, syncQueueDepth)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(route string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncWizardTransition(flow, direction, outcome string) {
	wizardTransitions.WithLabelValues(flow, direction, outcome).Inc()
}

func IncSubmission(flow, outcome string) {
	submissions.WithLabelValues(flow, outcome).Inc()
}

func IncContact(outcome string) {
	contactMessages.WithLabelValues(outcome).Inc()
}

func SetSyncQueueDepth(n int) {
	syncQueueDepth.Set(float64(n))
}
