// Package backtest implements the Backtest Driver: it streams a
// historical price series through the Market State Analyzer and Grid
// Trader, routes every non-None signal as a market order through the
// Market Simulator, applies fills back to the trader, and records
// per-bar equity and trade metrics. Grounded on the teacher's
// BacktestEngine tick-loop/trade-recording shape, replacing its
// DCA-indicator strategy with the grid trader/analyzer/simulator
// pipeline this repo builds around.
package backtest

import (
	"fmt"

	"github.com/vantrade/gridbot/internal/grid"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/internal/regime"
	"github.com/vantrade/gridbot/internal/simulator"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

// orderSizeFraction is the fixed fraction of current cash (buys) or
// current inventory (sells) routed as a market order per signal.
const orderSizeFraction = 0.10

// CostModel bundles the deterministic seed and slippage configuration the
// Market Simulator uses while backtesting, so the same (series, config,
// cost model) triple always reproduces identical fills.
type CostModel struct {
	Seed     int64
	Slippage simulator.SlippageModel
}

// DefaultCostModel returns a CostModel with the default slippage model
// and a fixed seed for reproducible runs.
func DefaultCostModel(seed int64) CostModel {
	return CostModel{Seed: seed, Slippage: simulator.DefaultSlippageModel()}
}

// Driver streams a price series through the Analyzer -> Grid Trader ->
// Market Simulator pipeline and accumulates a Result.
type Driver struct {
	cfg      *config.GridConfig
	detector *regime.Detector
	trader   *grid.Trader
	sim      *simulator.Simulator

	riskCtrl *portfolio.Controller // optional; nil means an unconstrained single-pair backtest
}

// NewDriver constructs a Driver for a single pair's GridConfig and cost
// model. riskCtrl may be nil for an unconstrained backtest (the default
// used by the optimizer); the CLI's "backtest run --with-risk" wires a
// single-pair Controller so signals are gated the way live routing gates
// them.
func NewDriver(cfg *config.GridConfig, cost CostModel, riskCtrl *portfolio.Controller) (*Driver, error) {
	trader, err := grid.NewTrader(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct grid trader: %w", err)
	}

	sim := simulator.New(cost.Seed, simulator.WithSlippageModel(cost.Slippage))

	d := &Driver{
		cfg:      cfg,
		detector: regime.NewDetector(nil),
		trader:   trader,
		sim:      sim,
		riskCtrl: riskCtrl,
	}
	if riskCtrl != nil {
		riskCtrl.RegisterTrader(cfg.Pair, trader)
	}
	return d, nil
}

// Run streams series through the pipeline bar by bar and returns the
// accumulated Result. The analyzer and signal generator are each
// evaluated exactly once per bar; priceWindow is preallocated to
// len(series) up front so no reallocation occurs on the hot path.
func (d *Driver) Run(series []types.OHLCV) (*Result, error) {
	result := newResult(len(series))
	priceWindow := make([]float64, 0, len(series))

	d.seedBook(series)

	startEquity := d.cfg.Capital
	for _, bar := range series {
		priceWindow = append(priceWindow, bar.Close)

		currentRegime, _, err := d.detector.Update(d.cfg.Pair, priceWindow, bar.Close, bar.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("classify regime: %w", err)
		}

		signal, err := d.trader.UpdateWithPrice(bar.Close, bar.Timestamp, currentRegime)
		if err != nil {
			return nil, fmt.Errorf("update grid trader: %w", err)
		}

		d.applyFeedUpdate(bar)

		if signal.Kind == types.SignalBuy || signal.Kind == types.SignalSell {
			if err := d.routeSignal(signal, bar, result); err != nil {
				return nil, err
			}
		}

		pos := d.trader.GetPositionSummary()
		equity := pos.Cash + pos.Inventory*bar.Close
		exposure := 0.0
		if d.cfg.Capital > 0 {
			exposure = pos.Inventory * bar.Close / d.cfg.Capital
		}
		result.recordBar(bar.Timestamp, equity, exposure)
	}

	result.finalize(startEquity, d.trader.GetPositionSummary().TradeCount)
	return result, nil
}

// seedBook initializes the simulator's book for the pair from the first
// bar's close, with a small synthetic spread, so the first order in the
// series always finds opposing liquidity. Feed updates from subsequent
// bars re-center it bar by bar.
func (d *Driver) seedBook(series []types.OHLCV) {
	if len(series) == 0 {
		return
	}
	first := series[0]
	spread := first.Close * 0.0005
	d.sim.InitializeOrderBook(d.cfg.Pair, types.BookSnapshot{
		Pair: d.cfg.Pair,
		Bids: []types.BookLevel{{Price: first.Close - spread, Size: 1e6}},
		Asks: []types.BookLevel{{Price: first.Close + spread, Size: 1e6}},
	})
}

// applyFeedUpdate re-centers the simulated book around the bar's close so
// every order in the series finds liquidity near the observed price.
func (d *Driver) applyFeedUpdate(bar types.OHLCV) {
	spread := bar.Close * 0.0005
	d.sim.InitializeOrderBook(d.cfg.Pair, types.BookSnapshot{
		Pair: d.cfg.Pair,
		Bids: []types.BookLevel{{Price: bar.Close - spread, Size: 1e6}},
		Asks: []types.BookLevel{{Price: bar.Close + spread, Size: 1e6}},
	})
}

// routeSignal sizes a market order for the signal (10% of cash for buys,
// 10% of inventory for sells, full inventory on an emergency exit),
// optionally gates it through the risk controller, executes it against
// the simulator, and applies the fill back to the trader.
func (d *Driver) routeSignal(signal types.Signal, bar types.OHLCV, result *Result) error {
	if d.riskCtrl != nil {
		auth := d.riskCtrl.Authorize(bar.Timestamp, signal, map[string]float64{d.cfg.Pair: bar.Close})
		if auth.Verdict != portfolio.VerdictAllow {
			return nil
		}
	}

	pos := d.trader.GetPositionSummary()
	var side types.Side
	var quantity float64

	switch signal.Kind {
	case types.SignalBuy:
		side = types.SideBuy
		quantity = (pos.Cash * orderSizeFraction) / bar.Close
	case types.SignalSell:
		side = types.SideSell
		quantity = pos.Inventory * orderSizeFraction
		if signal.Reason == "emergency_exit_up" {
			quantity = pos.Inventory
		}
	default:
		return nil
	}
	if quantity <= 0 {
		return nil
	}

	order := types.Order{
		ID:              simulator.NewOrderID(),
		Pair:            d.cfg.Pair,
		Side:            side,
		Type:            types.OrderTypeMarket,
		Quantity:        quantity,
		SubmitTimestamp: bar.Timestamp,
	}
	fill, err := d.sim.ExecuteOrder(order)
	if err != nil {
		return fmt.Errorf("execute order: %w", err)
	}
	if fill.FilledQuantity <= 0 {
		return nil
	}

	realizedBefore := pos.RealizedPnL
	if err := d.trader.ApplyFill(side, fill.AveragePrice, fill.FilledQuantity, fill.Fee); err != nil {
		return fmt.Errorf("apply fill: %w", err)
	}
	realizedAfter := d.trader.GetPositionSummary().RealizedPnL

	result.recordTrade(fill.Fee)
	result.recordRealizedPnL(realizedAfter - realizedBefore)
	return nil
}

// Trader exposes the Driver's underlying Grid Trader, read-only, for
// callers that need the final position summary (the CLI's backtest
// report, the optimizer's degeneracy check).
func (d *Driver) Trader() *grid.Trader {
	return d.trader
}
