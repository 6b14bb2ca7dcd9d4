// Package grid implements the per-pair Grid Trader: a state machine that
// maintains buy/sell grid levels around a moving center, detects price
// crossings, and enforces position, inventory, and emergency-exit
// invariants. Structured the way the teacher's GridEngine owns levels and
// positions, but the signal/state model follows the grid trading spec
// rather than the teacher's profit-target-per-level design.
package grid

import (
	"math"
	"time"

	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/internal/regime"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

// State is the Grid Trader's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateActive
	StateLiquidating
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateActive:
		return "Active"
	case StateLiquidating:
		return "Liquidating"
	case StateHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// antiNoiseThreshold suppresses signal evaluation for price moves smaller
// than this fraction of the last price.
const antiNoiseThreshold = 0.001

// duplicateSuppressionWindow is how many of the most recently fired level
// prices are considered "recently fired" and therefore skipped.
const duplicateSuppressionWindow = 4

// PositionSummary is a read-only snapshot of a trader's bookkeeping state.
type PositionSummary struct {
	Pair          string
	State         State
	LastPrice     float64
	Cash          float64
	Inventory     float64
	AvgEntryPrice float64
	RealizedPnL   float64
	TradeCount    int
}

// Trader owns one pair's grid levels, cash, inventory, and signal history.
// Per the single-writer-per-pair concurrency model, a Trader is mutated
// only by the actor task that owns it; it holds no internal lock.
type Trader struct {
	cfg *config.GridConfig

	state State

	lastPrice     float64
	center        float64 // price the current levels were built around
	activeSpacing float64 // regime-adjusted spacing used to build current levels
	buyLevels     []float64
	sellLevels    []float64

	cash          float64
	inventory     float64
	avgEntryPrice float64
	realizedPnL   float64
	tradeCount    int

	recentLevels []float64 // FIFO ring of the last fired level prices
}

// NewTrader creates an Idle trader funded with cfg.Capital.
func NewTrader(cfg *config.GridConfig) (*Trader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trader{
		cfg:   cfg,
		state: StateIdle,
		cash:  cfg.Capital,
	}, nil
}

// spacingForRegime returns the regime-adjusted spacing: tighter in a trend,
// wider when ranging.
func spacingForRegime(base float64, state regime.RegimeType) float64 {
	switch state {
	case regime.RegimeTrendingUp, regime.RegimeTrendingDown:
		return base * 0.7
	default:
		return base * 1.2
	}
}

// buildLevels constructs symmetric buy/sell ladders around center using a
// constant absolute increment of spacing*center, so adjacent-level spacing
// equals the active spacing times the center, as required.
func (t *Trader) buildLevels(center, spacing float64) {
	t.center = center
	t.activeSpacing = spacing
	increment := spacing * center

	t.buyLevels = make([]float64, t.cfg.Levels)
	t.sellLevels = make([]float64, t.cfg.Levels)
	for i := 0; i < t.cfg.Levels; i++ {
		step := float64(i+1) * increment
		t.buyLevels[i] = center - step  // descending: index 0 is highest
		t.sellLevels[i] = center + step // ascending: index 0 is lowest
	}
}

// UpdateWithPrice feeds a new price observation (and the currently
// classified market regime) through the trader, returning the signal to
// route downstream. On NaN/infinite/non-positive price the call fails with
// InvalidPrice and leaves state unchanged.
func (t *Trader) UpdateWithPrice(price float64, ts time.Time, currentRegime regime.RegimeType) (types.Signal, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return types.Signal{}, boterrors.NewInvalidPrice("grid", "update_with_price")
	}

	switch t.state {
	case StateIdle:
		t.lastPrice = price
		t.buildLevels(price, spacingForRegime(t.cfg.Spacing, currentRegime))
		t.state = StateActive
		return types.NoneSignal(), nil

	case StateHalted:
		return types.NoneSignal(), nil
	}

	oldPrice := t.lastPrice

	if oldPrice > 0 && math.Abs(price-oldPrice)/oldPrice < antiNoiseThreshold {
		t.lastPrice = price
		return types.NoneSignal(), nil
	}

	newSpacing := spacingForRegime(t.cfg.Spacing, currentRegime)
	if newSpacing != t.activeSpacing {
		t.buildLevels(oldPrice, newSpacing)
	}

	if t.state == StateActive {
		if signal, halted := t.checkEmergencyExit(price); signal.Kind != types.SignalNone || halted {
			t.lastPrice = price
			return signal, nil
		}
	}

	if t.state == StateLiquidating {
		if t.inventory <= 0 {
			t.state = StateHalted
		}
		t.lastPrice = price
		return types.NoneSignal(), nil
	}

	signal := t.detectCrossing(oldPrice, price)
	t.lastPrice = price
	return signal, nil
}

// checkEmergencyExit applies the upward/downward emergency-exit rule. An
// upward breach liquidates all inventory with a single Sell; a downward
// breach halts the trader outright, since shorting is never attempted.
func (t *Trader) checkEmergencyExit(price float64) (types.Signal, bool) {
	e := t.cfg.EmergencyExitThreshold
	maxSell := t.sellLevels[len(t.sellLevels)-1]
	minBuy := t.buyLevels[len(t.buyLevels)-1]

	if price > maxSell*(1+e) && t.inventory > 0 {
		t.state = StateLiquidating
		sig := types.SellSignal(price, "emergency_exit_up")
		t.recordSignal(price)
		return sig, false
	}
	if price < minBuy*(1-e) {
		t.state = StateHalted
		return types.HaltSignal("emergency_exit_down"), true
	}
	return types.NoneSignal(), false
}

// detectCrossing finds the highest buy level crossed downward, or the
// lowest sell level crossed upward, between oldPrice and price, skipping
// levels that fired within the duplicate-suppression window or that are
// blocked by a position limit.
func (t *Trader) detectCrossing(oldPrice, price float64) types.Signal {
	for _, level := range t.buyLevels {
		if oldPrice > level && level >= price && !t.recentlyFired(level) {
			if t.buySuppressed(price) {
				return types.NoneSignal()
			}
			t.recordSignal(level)
			return types.BuySignal(level)
		}
	}
	for _, level := range t.sellLevels {
		if oldPrice < level && level <= price && !t.recentlyFired(level) {
			if t.inventory <= 0 {
				return types.NoneSignal()
			}
			t.recordSignal(level)
			return types.SellSignal(level, "level_cross")
		}
	}
	return types.NoneSignal()
}

// buySuppressed reports whether a Buy at price should be withheld because
// inventory exposure or available cash is too low.
func (t *Trader) buySuppressed(price float64) bool {
	if t.inventory*price/t.cfg.Capital >= t.cfg.MaxPositionFraction {
		return true
	}
	if t.cash < price*t.cfg.DefaultTradeSize {
		return true
	}
	return false
}

// recentlyFired reports whether level appears among the last
// duplicateSuppressionWindow fired levels.
func (t *Trader) recentlyFired(level float64) bool {
	for _, fired := range t.recentLevels {
		if fired == level {
			return true
		}
	}
	return false
}

func (t *Trader) recordSignal(level float64) {
	t.recentLevels = append(t.recentLevels, level)
	if len(t.recentLevels) > duplicateSuppressionWindow {
		t.recentLevels = t.recentLevels[1:]
	}
}

// ApplyFill updates cash, inventory, avg_entry_price, realized_pnl, and
// trade_count for a single fill. Inventory may never go negative; an
// over-sized sell fails with OversoldInventory and leaves state unchanged.
func (t *Trader) ApplyFill(side types.Side, price, quantity, fee float64) error {
	if quantity <= 0 || math.IsNaN(quantity) {
		return boterrors.NewInvalidOrder("grid", "apply_fill", "quantity must be positive")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return boterrors.NewInvalidPrice("grid", "apply_fill")
	}

	switch side {
	case types.SideBuy:
		cost := price*quantity + fee
		if cost > t.cash {
			return boterrors.NewInsufficientFunds("grid", "apply_fill")
		}
		newInventory := t.inventory + quantity
		t.avgEntryPrice = (t.avgEntryPrice*t.inventory + price*quantity) / newInventory
		t.inventory = newInventory
		t.cash -= cost
		t.tradeCount++

	case types.SideSell:
		if quantity > t.inventory {
			return boterrors.NewOversoldInventory("grid", "apply_fill")
		}
		pnl := quantity*(price-t.avgEntryPrice) - fee
		t.realizedPnL += pnl
		t.inventory -= quantity
		t.cash += price*quantity - fee
		t.tradeCount++
		if t.inventory == 0 && t.state == StateLiquidating {
			t.state = StateHalted
		}
	}
	return nil
}

// GetPositionSummary returns a read-only snapshot of the trader's state.
func (t *Trader) GetPositionSummary() PositionSummary {
	return PositionSummary{
		Pair:          t.cfg.Pair,
		State:         t.state,
		LastPrice:     t.lastPrice,
		Cash:          t.cash,
		Inventory:     t.inventory,
		AvgEntryPrice: t.avgEntryPrice,
		RealizedPnL:   t.realizedPnL,
		TradeCount:    t.tradeCount,
	}
}

// State returns the trader's current lifecycle state.
func (t *Trader) State() State {
	return t.state
}

// BuyLevels returns the current descending buy-level ladder.
func (t *Trader) BuyLevels() []float64 {
	return append([]float64(nil), t.buyLevels...)
}

// SellLevels returns the current ascending sell-level ladder.
func (t *Trader) SellLevels() []float64 {
	return append([]float64(nil), t.sellLevels...)
}

// Rearm transitions a Halted trader back to Active, rebuilding its levels
// around the last observed price and clearing fired-level history. This is
// the only operator-triggered transition out of Halted.
func (t *Trader) Rearm(currentRegime regime.RegimeType) {
	if t.state != StateHalted {
		return
	}
	t.state = StateActive
	t.recentLevels = nil
	t.buildLevels(t.lastPrice, spacingForRegime(t.cfg.Spacing, currentRegime))
}
