package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for MicroPaper.
type Metrics struct {
	// --- Matching engine ---
	MatchRuns         *prometheus.CounterVec
	TradesExecuted    prometheus.Counter
	QuantityTraded    prometheus.Counter
	EngineRunDuration *prometheus.HistogramVec

	// --- Settlement engine ---
	SettlementRuns  *prometheus.CounterVec
	OrdersFilled    prometheus.Counter
	HoldingsCreated prometheus.Counter

	// --- Order intake ---
	OrdersPlaced   *prometheus.CounterVec
	OrdersRejected *prometheus.CounterVec

	// --- Issuance & compliance ---
	NotesIssued         prometheus.Counter
	ComplianceDecisions *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec

	// --- Outbound events ---
	EventsPublished *prometheus.CounterVec
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		MatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_match_runs_total",
			Help: "Matching runs by outcome (ok, error).",
		}, []string{"outcome"}),

		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_trades_executed_total",
			Help: "Trades produced by matching runs.",
		}),

		QuantityTraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_quantity_traded_total",
			Help: "Total quantity matched, in minor units.",
		}),

		EngineRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "micropaper_engine_run_duration_seconds",
			Help:    "Duration of engine runs by operation (match, settle).",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		SettlementRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_settlement_runs_total",
			Help: "Settlement runs by outcome (ok, error).",
		}, []string{"outcome"}),

		OrdersFilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_orders_filled_total",
			Help: "Orders filled by settlement runs.",
		}),

		HoldingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_holdings_created_total",
			Help: "Holding lots created by settlement runs.",
		}),

		OrdersPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_orders_placed_total",
			Help: "Orders accepted by intake, by side.",
		}, []string{"side"}),

		OrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_orders_rejected_total",
			Help: "Orders rejected by intake, by reason.",
		}, []string{"reason"}),

		NotesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_notes_issued_total",
			Help: "Notes issued by the custodian endpoint.",
		}),

		ComplianceDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_compliance_decisions_total",
			Help: "Compliance verification actions (verify, unverify, check_status).",
		}, []string{"action"}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_query_requests_total",
			Help: "Read-API requests by endpoint.",
		}, []string{"endpoint"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "micropaper_query_duration_seconds",
			Help:    "Read-API request duration by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_query_errors_total",
			Help: "Read-API errors by endpoint.",
		}, []string{"endpoint"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "micropaper_events_published_total",
			Help: "Outbound market events published by type.",
		}, []string{"event_type"}),

		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "micropaper_event_publish_errors_total",
			Help: "Outbound publish failures (non-fatal).",
		}),
	}
}
