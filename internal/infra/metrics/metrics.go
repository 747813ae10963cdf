// File: internal/infra/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(dispatchTotal, dispatchLatency)
}

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebot_dispatch_total",
			Help: "Dispatched events by command and outcome (ok/fallback/error/malformed).",
		},
		[]string{"command", "outcome"},
	)

	dispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebot_dispatch_duration_seconds",
			Help:    "Time spent inside command handlers.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"command"},
	)
)

func ObserveDispatch(command, outcome string, d time.Duration) {
	dispatchTotal.WithLabelValues(norm(command), norm(outcome)).Inc()
	dispatchLatency.WithLabelValues(norm(command)).Observe(d.Seconds())
}
