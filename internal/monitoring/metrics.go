// Package monitoring exposes the engine's Prometheus metrics surface and a
// liveness/readiness HTTP health check, following the teacher's
// promauto-registered metric style.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsEmitted counts every non-None signal a Grid Trader emits,
	// labeled by pair and kind (buy/sell/halt).
	SignalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_signals_emitted_total",
			Help: "Total signals emitted by a Grid Trader",
		},
		[]string{"pair", "kind"},
	)

	// FillsExecuted counts fills applied back to a Grid Trader, labeled by
	// pair and side.
	FillsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_fills_total",
			Help: "Total fills applied to a Grid Trader",
		},
		[]string{"pair", "side"},
	)

	// FillLatency records the Market Simulator's drawn latency per fill.
	FillLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridbot_fill_latency_ms",
			Help:    "Simulated or exchange fill latency in milliseconds",
			Buckets: prometheus.LinearBuckets(50, 15, 10),
		},
		[]string{"pair"},
	)

	// PortfolioExposure tracks the Risk Controller's current exposure
	// fraction against its cap.
	PortfolioExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_portfolio_exposure_fraction",
		Help: "Current portfolio exposure as a fraction of total capital",
	})

	// PortfolioDrawdown tracks drawdown from the portfolio high-water mark.
	PortfolioDrawdown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_portfolio_drawdown_fraction",
		Help: "Current drawdown from the portfolio high-water mark",
	})

	// RiskHalts counts every transition into the Risk Controller's sticky
	// Halt state, labeled by reason.
	RiskHalts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_risk_halts_total",
			Help: "Total Risk Controller halts by reason",
		},
		[]string{"reason"},
	)

	// OptimizerGeneration tracks the genetic search's current generation
	// number during an optimize run.
	OptimizerGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_optimizer_generation",
		Help: "Current generation number of a running genetic search",
	})

	// OptimizerBestScore tracks the best composite score seen so far in a
	// running optimizer search.
	OptimizerBestScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_optimizer_best_score",
		Help: "Best composite score observed in the current optimizer run",
	})

	// ExchangeLatency records exchange-adapter call latency per operation.
	ExchangeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridbot_exchange_latency_seconds",
			Help:    "Exchange adapter call latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"exchange", "operation"},
	)
)

// RecordSignal increments the signal counter for pair/kind.
func RecordSignal(pair, kind string) {
	SignalsEmitted.WithLabelValues(pair, kind).Inc()
}

// RecordFill increments the fill counter and observes latency for pair/side.
func RecordFill(pair, side string, latencyMS float64) {
	FillsExecuted.WithLabelValues(pair, side).Inc()
	FillLatency.WithLabelValues(pair).Observe(latencyMS)
}

// RecordHalt increments the halt counter for reason.
func RecordHalt(reason string) {
	RiskHalts.WithLabelValues(reason).Inc()
}
