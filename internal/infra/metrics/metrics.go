package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API client metrics
var (
	// RequestsTotal counts Depined API calls by endpoint and outcome (ok/error)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depined_api_requests_total",
			Help: "Depined API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration tracks API call latency, retries included
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depined_api_request_duration_seconds",
			Help:    "Depined API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// BreakerStateChanges counts per-account circuit breaker transitions by new state
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depined_breaker_state_changes_total",
			Help: "Circuit breaker transitions by new state",
		},
		[]string{"state"},
	)
)

// Account loop metrics
var (
	ActiveAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "depined_active_accounts",
			Help: "Number of running account loops",
		},
	)

	// HeartbeatsTotal counts poll cycles by outcome (ok/error)
	HeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depined_heartbeats_total",
			Help: "Heartbeat cycles by status",
		},
		[]string{"status"},
	)

	SetupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depined_setup_failures_total",
			Help: "Failed profile fetches during account setup",
		},
	)

	PanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depined_account_panics_total",
			Help: "Account loops restarted after a recovered panic",
		},
	)

	// AccountEarnings is the last earnings value seen per account
	AccountEarnings = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "depined_account_epoch_earnings",
			Help: "Latest epoch earnings per account",
		},
		[]string{"account"},
	)

	AccountEpoch = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "depined_account_epoch",
			Help: "Latest epoch id per account",
		},
		[]string{"account"},
	)
)
