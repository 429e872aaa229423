package metrics

import (
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbPoolStats, ledgerWritesTotal) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	// op: upsert|mark_first_approved; result: created|changed|noop|won|lost|error
	ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Payment ledger writes by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func ObservePool(st *pgxpool.Stat) {
	if st == nil {
		return
	}
	dbPoolStats.WithLabelValues("total").Set(float64(st.TotalConns()))
	dbPoolStats.WithLabelValues("idle").Set(float64(st.IdleConns()))
	dbPoolStats.WithLabelValues("in_use").Set(float64(st.AcquiredConns()))
}

func IncLedgerWrite(op, result string) {
	ledgerWritesTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
