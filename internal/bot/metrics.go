package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdatesProcessed     *prometheus.CounterVec
	UpdateProcessingTime prometheus.Histogram
	ErrorsTotal          prometheus.Counter
	RateLimited          prometheus.Counter
	BookingsCreated      prometheus.Counter
	BookingsRefused      *prometheus.CounterVec
}

// NewMetrics регистрирует метрики бота в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_updates_total",
			Help: "Updates processed by kind",
		}, []string{"kind"}),

		UpdateProcessingTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		ErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Panics recovered in update handlers",
		}),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limit",
		}),

		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Appointments confirmed through the bot",
		}),

		BookingsRefused: f.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_refused_total",
			Help: "Confirmations refused, by reason",
		}, []string{"reason"}),
	}
}
