package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(checkoutRequestsTotal, adminRequestsTotal) }

var (
	// result: created|invalid|unauthenticated|forbidden|rate_limited|unavailable|gateway_error
	checkoutRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_requests_total",
			Help: "Checkout creation requests by result.",
		},
		[]string{"result"},
	)

	adminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Tracks attempts to use the admin API.",
		},
		[]string{"route", "status"}, // status: 'authorized', 'unauthorized'
	)
)

func IncCheckout(result string) {
	checkoutRequestsTotal.WithLabelValues(norm(result)).Inc()
}

func IncAdminRequest(route, status string) {
	adminRequestsTotal.WithLabelValues(norm(route), norm(status)).Inc()
}
