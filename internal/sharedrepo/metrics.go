package sharedrepo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for a Manager.
//
// Metrics:
//   - commitrounds_sharedrepo_clone_requests_total{outcome} - reused, cloned, recloned, failed
//   - commitrounds_sharedrepo_checkouts_total{outcome} - ok, recovered, failed
//   - commitrounds_sharedrepo_lock_wait_seconds - time spent waiting for a clone lock
//   - commitrounds_sharedrepo_swept_total - clones removed by the maintenance sweep
type Metrics struct {
	CloneRequests *prometheus.CounterVec
	Checkouts     *prometheus.CounterVec
	LockWait      prometheus.Histogram
	Swept         prometheus.Counter
}

// NewMetrics registers the manager metrics on reg. A nil reg gets a private
// registry so several managers can coexist in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		CloneRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commitrounds",
				Subsystem: "sharedrepo",
				Name:      "clone_requests_total",
				Help:      "Total number of get-or-clone requests by outcome",
			},
			[]string{"outcome"},
		),
		Checkouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "commitrounds",
				Subsystem: "sharedrepo",
				Name:      "checkouts_total",
				Help:      "Total number of snapshot checkouts by outcome",
			},
			[]string{"outcome"},
		),
		LockWait: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "commitrounds",
				Subsystem: "sharedrepo",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for a clone lock in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms to ~65s
			},
		),
		Swept: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "commitrounds",
				Subsystem: "sharedrepo",
				Name:      "swept_total",
				Help:      "Total number of clones removed by the maintenance sweep",
			},
		),
	}
}

const (
	outcomeReused    = "reused"
	outcomeCloned    = "cloned"
	outcomeRecloned  = "recloned"
	outcomeFailed    = "failed"
	outcomeOK        = "ok"
	outcomeRecovered = "recovered"
)
