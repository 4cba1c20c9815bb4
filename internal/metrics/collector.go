package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tailing metrics
	LinesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_lines_read_total",
			Help: "Complete lines read from the monitored file",
		},
	)
	FileActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_file_actions_total",
			Help: "Lifecycle actions observed on the monitored file",
		},
		[]string{"action"},
	)
	Truncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_truncations_total",
			Help: "In-place truncations detected on the monitored file",
		},
	)
	NotifierErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_notifier_errors_total",
			Help: "Errors returned while draining file change notifications",
		},
	)
	FileOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authguard_file_open",
			Help: "1 while the monitored file is open, 0 while it is absent",
		},
	)

	// Failure counting metrics
	FailureLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_failure_lines_total",
			Help: "Lines classified as authentication failures",
		},
	)
	IgnoredFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_ignored_failures_total",
			Help: "Failure lines discarded by the debounce window",
		},
	)
	FailedAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authguard_failed_attempts",
			Help: "Current failed attempt count",
		},
	)
	Resets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_failed_attempts_resets_total",
			Help: "Times the failed attempt count decayed back to zero",
		},
	)
	ThresholdExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authguard_threshold_exceeded_total",
			Help: "Updates in which the failed attempt threshold was reached",
		},
	)

	// Action metrics
	ActionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_action_runs_total",
			Help: "Threshold action executions by result",
		},
		[]string{"result"},
	)
)
