package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "gamebot_build_info",
		Help: "Constant 1, labelled with version, commit and bot language.",
	},
	[]string{"version", "commit", "language"},
)

func SetBuildInfo(version, commit, language string) {
	buildInfo.WithLabelValues(version, commit, norm(language)).Set(1)
}
