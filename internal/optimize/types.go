// Package optimize implements the Parameter Optimizer: Grid, Random,
// Genetic, and Bayesian search over a pair's grid_levels/grid_spacing/
// timeframe/risk-sizing-mode parameter space, each candidate scored by
// running the Backtest Driver on the same price series and cost model.
// Grounded on the teacher's pkg/optimization/ga.go tournament-selection
// genetic algorithm (adapted to this spec's parameter vector rather than
// the teacher's DCA-indicator gene set) and its
// internal/backtest/worker_pool.go bounded worker pool, reused here for
// the embarrassingly-parallel candidate evaluation.
package optimize

import "github.com/vantrade/gridbot/pkg/config"

// GridLevelsMin, GridLevelsMax, SpacingMin, and SpacingMax bound the
// optimizer's parameter space.
const (
	GridLevelsMin = 5
	GridLevelsMax = 20
	SpacingMin    = 0.001
	SpacingMax    = 0.10
)

// Timeframes is the enumerated set of bar durations the optimizer samples
// for the timeframe gene.
var Timeframes = []config.Timeframe{
	config.Timeframe1m, config.Timeframe5m, config.Timeframe15m,
	config.Timeframe1h, config.Timeframe4h, config.Timeframe1d,
}

// RiskSizingModes is the enumerated set of position-sizing modes the
// optimizer samples for the risk-sizing gene. Only Fixed is wired into
// backtest execution (see internal/backtest); the others are scored and
// reported but fall back to Fixed sizing when evaluated.
var RiskSizingModes = []config.RiskSizingMode{
	config.RiskSizingFixed, config.RiskSizingKelly, config.RiskSizingVaR, config.RiskSizingVolAdjusted,
}

// Candidate is a single point in the parameter space.
type Candidate struct {
	GridLevels  int
	GridSpacing float64
	Timeframe   config.Timeframe
	RiskSizing  config.RiskSizingMode
}

// Evaluation is a scored Candidate: its raw backtest metrics plus the
// composite score computed relative to the batch it was evaluated in.
type Evaluation struct {
	Candidate   Candidate
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	TradeCount  int
	Score       float64
	Degenerate  bool // zero trades or a NaN metric; excluded from the reported optimum
}
