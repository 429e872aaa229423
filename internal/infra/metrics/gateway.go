package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayRequestsTotal,
		gatewayRequestDuration,
	)
}

var (
	// op: create_preference|fetch_payment|lookup_payment
	// code: 2xx|4xx|5xx|transport_error|unavailable
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Calls to the payment gateway by operation and response class.",
		},
		[]string{"op", "code"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"op"},
	)
)

func ObserveGatewayCall(op, code string, d time.Duration) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(code)).Inc()
	if d > 0 {
		gatewayRequestDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
	}
}
