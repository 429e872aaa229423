package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookDeliveriesTotal,
		webhookDuration,
	)
}

var (
	// Count of webhook deliveries grouped by notification type, outcome and the status we answered.
	// outcome: applied|recorded|already_processed|unhandled_status|apply_failed|ignored|error
	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_deliveries_total",
			Help: "Webhook deliveries by notification type, outcome and HTTP status returned.",
		},
		[]string{"type", "outcome", "status"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_webhook_duration_seconds",
			Help:    "Duration of webhook handling in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)
)

func ObserveWebhook(typ, outcome string, status int, d time.Duration) {
	webhookDeliveriesTotal.WithLabelValues(norm(typ), norm(outcome), strconv.Itoa(status)).Inc()
	webhookDuration.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}
