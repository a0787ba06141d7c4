// Package metrics exposes Prometheus counters for the Facebook session bridge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LoginsTotal counts sessions established from a Facebook assertion.
	LoginsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fbgate_logins_total",
			Help: "Sessions established from a Facebook assertion",
		},
	)

	// LogoutsTotal counts Facebook-backed sessions terminated by cookie drift.
	LogoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fbgate_logouts_total",
			Help: "Facebook-backed sessions terminated",
		},
	)

	// LoginFailuresTotal counts authentication attempts that did not produce a user.
	LoginFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fbgate_login_failures_total",
			Help: "Authentication attempts that failed",
		},
	)

	// GraphRequestsTotal counts Graph API calls by outcome.
	GraphRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbgate_graph_requests_total",
			Help: "Graph API requests",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		LoginsTotal,
		LogoutsTotal,
		LoginFailuresTotal,
		GraphRequestsTotal,
	)
}
