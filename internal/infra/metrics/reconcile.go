package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		membershipExtensionsTotal,
		reconciliationGapsTotal,
		approvedRevenueTotal,
		repairSweepsTotal,
		membershipsExpiredTotal,
	)
}

var (
	membershipExtensionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_extensions_total",
			Help: "Memberships extended from approved payments.",
		},
	)

	// source: webhook|repair
	reconciliationGapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_gaps_total",
			Help: "Approved payments whose membership extension failed.",
		},
		[]string{"source"},
	)

	approvedRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_approved_amount_total",
			Help: "The total monetary value of first-time approved payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// result: repaired|failed
	repairSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_repair_total",
			Help: "Membership repair attempts by result.",
		},
		[]string{"result"},
	)
)

var membershipsExpiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "memberships_expired_total",
		Help: "Memberships switched to inactive after their expiry passed.",
	},
)

func AddMembershipsExpired(n int) { membershipsExpiredTotal.Add(float64(n)) }

func IncMembershipExtension() { membershipExtensionsTotal.Inc() }

func IncReconciliationGap(source string) {
	reconciliationGapsTotal.WithLabelValues(norm(source)).Inc()
}

func AddApprovedRevenue(currency string, amount decimal.Decimal) {
	approvedRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func IncRepair(result string) {
	repairSweepsTotal.WithLabelValues(norm(result)).Inc()
}
