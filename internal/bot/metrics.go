package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	FunnelOutcomes          *prometheus.CounterVec
	MembershipCheckFailures prometheus.Counter
	BroadcastSent           prometheus.Counter
	BroadcastFailed         prometheus.Counter
	MessagesProcessed       prometheus.Counter
	ErrorsTotal             prometheus.Counter
	UpdateProcessingTime    prometheus.Histogram
}

// NewMetrics создает новые метрики
func NewMetrics() *Metrics {
	return &Metrics{
		FunnelOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "funnel_bot_outcomes_total",
			Help: "Funnel decisions by outcome",
		}, []string{"outcome"}),

		MembershipCheckFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "funnel_bot_membership_check_failures_total",
			Help: "Subscription checks that could not reach Telegram",
		}),

		BroadcastSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "funnel_bot_broadcast_sent_total",
			Help: "Broadcast messages delivered",
		}),

		BroadcastFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "funnel_bot_broadcast_failed_total",
			Help: "Broadcast messages that failed to deliver",
		}),

		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "funnel_bot_messages_processed_total",
			Help: "Total number of messages processed",
		}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "funnel_bot_errors_total",
			Help: "Total number of handler errors and panics",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "funnel_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
