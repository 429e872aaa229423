package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(noticesTotal) }

var noticesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ops_notices_total",
		Help: "Operator notices by kind and delivery status.",
	},
	[]string{"kind", "status"}, // status: sent|error|dropped|logged
)

func IncNotice(kind, status string) {
	noticesTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}
