package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CollectRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagepulse_collect_runs_total",
		Help: "Total collection runs",
	})
	CollectErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagepulse_collect_errors_total",
		Help: "Total collection errors",
	})
	AnalyticsRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagepulse_analytics_runs_total",
		Help: "Total analytics pipeline runs",
	})
	AnalyticsErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagepulse_analytics_errors_total",
		Help: "Total analytics pipeline errors",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagepulse_run_duration_seconds",
		Help:    "Pipeline run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepulse_api_retries_total",
		Help: "Total Graph API retry attempts",
	}, []string{"endpoint"})
	TimestampFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagepulse_timestamp_fallbacks_total",
		Help: "Unparsable publish timestamps replaced with now",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepulse_command_runs_total",
		Help: "Total CLI command executions",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagepulse_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(CollectRuns, CollectErrors, AnalyticsRuns, AnalyticsErrors,
		RunDuration, APIRetries, TimestampFallbacks, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRunDuration records a run duration
func ObserveRunDuration(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncCommandRun counts a CLI command execution.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts a CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
