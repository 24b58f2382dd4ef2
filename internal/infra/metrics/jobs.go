package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsTotal, stageLatency, stageFailures) }

var jobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quote_jobs_total",
		Help: "Quote jobs finished, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var stageLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "quote_stage_duration_seconds",
		Help:    "Per-stage execution time of the quote pipeline.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"stage", "success"},
)

var stageFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quote_stage_failures_total",
		Help: "Stage failures by stage and error kind.",
	},
	[]string{"stage", "kind"},
)

func IncJob(status string) {
	jobsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStage(stage string, d time.Duration, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	stageLatency.WithLabelValues(norm(stage), label).Observe(d.Seconds())
}

func IncStageFailure(stage, kind string) {
	stageFailures.WithLabelValues(norm(stage), norm(kind)).Inc()
}
