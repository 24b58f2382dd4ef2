package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitDenials, crmPushes) }

var rateLimitDenials = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "Admissions denied by the rate limiter, per operation.",
	},
	[]string{"operation"},
)

var crmPushes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crm_push_total",
		Help: "CRM push attempts by outcome (ok/error/timeout).",
	},
	[]string{"outcome"},
)

func IncRateLimitDenial(operation string) {
	rateLimitDenials.WithLabelValues(norm(operation)).Inc()
}

func IncCRMPush(outcome string) {
	crmPushes.WithLabelValues(norm(outcome)).Inc()
}
