package optimize

import (
	"math"

	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

// EvalContext holds the inputs shared by every candidate evaluation in a
// single optimizer run: the pair, price series, and cost model. Each
// worker builds its own GridConfig and Driver per candidate, so workers
// share only this read-only context, per the embarrassingly-parallel
// concurrency model.
type EvalContext struct {
	Pair      string
	BasePrice float64
	Capital   float64
	Series    []types.OHLCV
	Cost      backtest.CostModel
}

// gridConfigFor builds the GridConfig a candidate's backtest run uses.
// Risk-sizing modes other than Fixed are recorded on the candidate but the
// Backtest Driver's order sizing always uses the fixed 10%-of-cash/
// inventory rule; see internal/backtest.
func gridConfigFor(ctx EvalContext, c Candidate) *config.GridConfig {
	cfg := config.NewGridConfig(ctx.Pair, ctx.BasePrice, c.GridLevels, c.GridSpacing, ctx.Capital)
	cfg.Timeframe = c.Timeframe
	return cfg
}

// Evaluate runs the Backtest Driver for a single candidate and returns its
// raw (unscored) metrics. A candidate that fails validation, trades zero
// times, or produces a non-finite metric is marked Degenerate; its metrics
// are zeroed so it cannot skew the batch's min-max normalization.
func Evaluate(ctx EvalContext, c Candidate) Evaluation {
	eval := Evaluation{Candidate: c}

	cfg := gridConfigFor(ctx, c)
	if err := cfg.Validate(); err != nil {
		eval.Degenerate = true
		return eval
	}

	driver, err := backtest.NewDriver(cfg, ctx.Cost, nil)
	if err != nil {
		eval.Degenerate = true
		return eval
	}

	result, err := driver.Run(ctx.Series)
	if err != nil {
		eval.Degenerate = true
		return eval
	}

	if result.TradeCount == 0 || isDegenerateMetric(result.TotalReturn) ||
		isDegenerateMetric(result.SharpeRatio) || isDegenerateMetric(result.MaxDrawdown) {
		eval.Degenerate = true
		return eval
	}

	eval.TotalReturn = result.TotalReturn
	eval.SharpeRatio = result.SharpeRatio
	eval.MaxDrawdown = result.MaxDrawdown
	eval.TradeCount = result.TradeCount
	return eval
}

func isDegenerateMetric(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
