package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminRequestsTotal) }

var adminRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_http_requests_total",
		Help: "Requests to the admin endpoint by route pattern and status code.",
	},
	[]string{"route", "code"},
)

// IncAdminRequest counts one admin request; route should be the router
// pattern, not the raw path, to keep cardinality bounded.
func IncAdminRequest(route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	adminRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
