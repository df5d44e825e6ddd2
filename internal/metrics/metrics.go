// Package metrics exposes Prometheus series for both engines, generalizing
// the teacher's single-product metrics.go (bot_orders_total, bot_equity_usd,
// bot_exit_reasons_total, bot_trades_total, bot_limit_orders_*_total) to the
// multi-venue, multi-strategy scope this module covers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Orders counts every market order submitted, labeled by engine
	// (momentum|triarb), exchange, and side.
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_orders_total",
			Help: "Market orders submitted.",
		},
		[]string{"engine", "exchange", "side"},
	)

	// Decisions counts every signal-evaluator verdict, labeled by whether
	// entry fired.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_decisions_total",
			Help: "Entry-signal evaluations, split by fired/not-fired.",
		},
		[]string{"strategy_id", "fired"},
	)

	// ExitReasons counts position closes by reason, mirroring the teacher's
	// bot_exit_reasons_total but keyed on the engine's own ExitReason enum.
	ExitReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_exit_reasons_total",
			Help: "Position closes, split by exit reason.",
		},
		[]string{"reason"},
	)

	// Trades counts closed positions by net-PnL result (win|loss), the
	// generalisation of the teacher's bot_trades_total{result}.
	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_trades_total",
			Help: "Closed positions, split by win/loss.",
		},
		[]string{"result"},
	)

	// OpenPositions is a gauge of currently OPEN+CLOSING positions, labeled
	// by exchange — the multi-venue analogue of the teacher's single-gauge
	// bot_equity_usd pattern applied to position count instead of equity.
	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trade_open_positions",
			Help: "Currently open or closing positions.",
		},
		[]string{"exchange"},
	)

	// WorkerCycleErrors counts MomentumWorker per-strategy cycle failures
	// (spec §4.3's "error counter").
	WorkerCycleErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trade_worker_cycle_errors_total",
			Help: "MomentumWorker per-strategy cycle failures.",
		},
	)

	// TriArbOpportunities counts scan results above threshold, by exchange.
	TriArbOpportunities = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_triarb_opportunities_total",
			Help: "Triangular-arb opportunities found at or above the profit threshold.",
		},
		[]string{"exchange"},
	)

	// TriArbLegSlippage observes realised per-leg slippage percent, the
	// executor's key health signal.
	TriArbLegSlippage = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_triarb_leg_slippage_percent",
			Help:    "Realised per-leg slippage percent during triangular execution.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"exchange", "pair"},
	)

	// VenueCircuitOpen tracks which adapters currently have an open circuit
	// breaker (spec §4.1's resilience requirement), 1 = open, 0 = closed.
	VenueCircuitOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trade_venue_circuit_open",
			Help: "1 if the venue adapter's circuit breaker is open, else 0.",
		},
		[]string{"exchange"},
	)
)

func init() {
	prometheus.MustRegister(
		Orders,
		Decisions,
		ExitReasons,
		Trades,
		OpenPositions,
		WorkerCycleErrors,
		TriArbOpportunities,
		TriArbLegSlippage,
		VenueCircuitOpen,
	)
}

// RecordTrade increments Trades with "win" or "loss" based on pnl's sign,
// and ExitReasons with reason — the pair of updates PositionMonitor calls
// after every finalized close.
func RecordTrade(reason string, pnlIsPositive bool) {
	ExitReasons.WithLabelValues(reason).Inc()
	if pnlIsPositive {
		Trades.WithLabelValues("win").Inc()
	} else {
		Trades.WithLabelValues("loss").Inc()
	}
}
