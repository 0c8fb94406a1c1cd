package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasturi",
		Subsystem: "ledger",
		Name:      "entries_total",
		Help:      "Ledger entries appended, by parent aggregate and action.",
	}, []string{"parent", "action"})

	LedgerVoids = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasturi",
		Subsystem: "ledger",
		Name:      "voids_total",
		Help:      "Ledger entries voided, by parent aggregate.",
	}, []string{"parent"})

	LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasturi",
		Subsystem: "ledger",
		Name:      "rejections_total",
		Help:      "Ledger operations rejected, by operation and error kind.",
	}, []string{"operation", "kind"})

	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kasturi",
		Subsystem: "ledger",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for a per-aggregate write lock.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})
)
