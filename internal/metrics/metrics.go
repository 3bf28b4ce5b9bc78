package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы обработки уведомления шлюза.
const (
	OutcomeApplied           = "applied"
	OutcomeNoop              = "noop"
	OutcomeBadSignature      = "bad_signature"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeError             = "error"
)

var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfunding_settlements_total",
			Help: "Processed payment notifications by outcome",
		},
		[]string{"source", "outcome"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crowdfunding_settlement_duration_seconds",
			Help:    "Duration of a settlement unit of work",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	LedgerEffectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfunding_ledger_effects_total",
			Help: "Ledger effects applied by kind",
		},
		[]string{"kind"},
	)

	ReconcileDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfunding_reconcile_drift_total",
			Help: "Campaigns whose collected amount differed from the sum of successful donations",
		},
	)

	EventListenerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfunding_event_listener_errors_total",
			Help: "Errors returned by DonationSettled listeners",
		},
		[]string{"listener"},
	)
)

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
