package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		telegramUpdatesReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramSendFailuresTotal,
		telegramPollFailuresTotal,
		telegramBackoffSeconds,
		telegramLoopState,
	)
}

var loopStates = []string{"idle", "polling", "backoff", "stopped"}

var (
	telegramUpdatesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_received_total",
			Help: "Inbound updates by kind (command/text/callback).",
		},
		[]string{"kind"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramSendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_send_failures_total",
			Help: "Failed reply deliveries by kind (text/media).",
		},
		[]string{"kind"},
	)

	telegramPollFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_poll_failures_total",
			Help: "Failed getUpdates calls.",
		},
	)

	telegramBackoffSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "telegram_poll_backoff_seconds",
			Help: "Most recent backoff delay applied after a failed poll.",
		},
	)

	telegramLoopState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telegram_poll_loop_state",
			Help: "1 for the poll loop's current state, 0 for the others.",
		},
		[]string{"state"},
	)
)

func IncUpdate(kind string) {
	telegramUpdatesReceivedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncSendFailure(kind string) {
	telegramSendFailuresTotal.WithLabelValues(norm(kind)).Inc()
}

func IncPollFailure() {
	telegramPollFailuresTotal.Inc()
}

func SetBackoff(d time.Duration) {
	telegramBackoffSeconds.Set(d.Seconds())
}

func SetLoopState(state string) {
	for _, s := range loopStates {
		v := 0.0
		if s == norm(state) {
			v = 1
		}
		telegramLoopState.WithLabelValues(s).Set(v)
	}
}
