// Package portfolio implements the Portfolio Risk Controller: a
// cross-strategy gate that aggregates exposure across every Grid Trader,
// validates proposed signals against drawdown, exposure, and daily-loss
// limits, and can halt the whole system. Grounded on the teacher's
// sync-guarded risk aggregate and sticky circuit-breaker state machine,
// trimmed to the three hard limits and Allow/Deny/Halt verdict this spec
// names.
package portfolio

import (
	"sync"
	"time"

	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/internal/grid"
	"github.com/vantrade/gridbot/pkg/types"
)

// Verdict is the tri-state result of an authorization request.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictDeny
	VerdictHalt
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "Allow"
	case VerdictDeny:
		return "Deny"
	case VerdictHalt:
		return "Halt"
	default:
		return "Unknown"
	}
}

// DenyReason classifies why a signal was denied or the system was halted.
type DenyReason string

const (
	DenyExposureCap  DenyReason = "exposure_cap"
	DenyDrawdownCap  DenyReason = "drawdown_cap"
	DenyDailyLossCap DenyReason = "daily_loss_cap"
)

// Authorization is the outcome of a single authorize call.
type Authorization struct {
	Verdict Verdict
	Reason  DenyReason // meaningful only when Verdict != VerdictAllow
}

// Config holds the controller's hard limits. Defaults match spec section
// 4.5.
type Config struct {
	MaxExposureFraction  float64 // sum(inventory*mark)/total capital, default 0.60
	MaxDrawdown          float64 // peak-to-current, default 0.15
	MaxDailyLossFraction float64 // daily P&L floor vs day-start equity, default 0.05
}

// DefaultConfig returns the spec's default hard limits.
func DefaultConfig() Config {
	return Config{
		MaxExposureFraction:  0.60,
		MaxDrawdown:          0.15,
		MaxDailyLossFraction: 0.05,
	}
}

// traderHandle is a non-owning read-only reference to a registered Grid
// Trader, used only to read its position summary for aggregation. The
// controller never mutates a trader and never reaches back into it beyond
// this accessor.
type traderHandle struct {
	trader *grid.Trader
}

// Controller aggregates exposure across every registered Grid Trader and
// gates proposed signals. It is accessed under a single shared mutex held
// only for the duration of each method call, per the bounded-non-blocking
// concurrency model; it exclusively owns the portfolio aggregate.
type Controller struct {
	mu sync.Mutex

	cfg          Config
	totalCapital float64

	traders map[string]traderHandle

	highWaterMark  float64
	dayStartEquity float64
	dayStart       time.Time

	halted     bool
	haltReason DenyReason
}

// New creates a Controller with the given hard limits and total allocated
// capital across all registered Grid Traders.
func New(cfg Config, totalCapital float64) *Controller {
	return &Controller{
		cfg:            cfg,
		totalCapital:   totalCapital,
		traders:        make(map[string]traderHandle),
		highWaterMark:  totalCapital,
		dayStartEquity: totalCapital,
	}
}

// RegisterTrader records a non-owning reference to a pair's Grid Trader so
// its position is included in aggregate exposure calculations.
func (c *Controller) RegisterTrader(pair string, trader *grid.Trader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traders[pair] = traderHandle{trader: trader}
}

// Snapshot computes the current cross-strategy portfolio aggregate: total
// equity, drawdown from high-water-mark, exposure, and day P&L.
// markPrices supplies each pair's current mark price; a pair missing from
// the map falls back to its trader's last observed price.
func (c *Controller) Snapshot(now time.Time, markPrices map[string]float64) types.PortfolioSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(now, markPrices)
}

func (c *Controller) snapshotLocked(now time.Time, markPrices map[string]float64) types.PortfolioSnapshot {
	totalEquity := 0.0
	exposureValue := 0.0
	for pair, h := range c.traders {
		pos := h.trader.GetPositionSummary()
		mark := markPrices[pair]
		if mark == 0 {
			mark = pos.LastPrice
		}
		totalEquity += pos.Cash + pos.Inventory*mark
		exposureValue += pos.Inventory * mark
	}

	if totalEquity > c.highWaterMark {
		c.highWaterMark = totalEquity
	}
	drawdown := 0.0
	if c.highWaterMark > 0 {
		drawdown = (c.highWaterMark - totalEquity) / c.highWaterMark
	}

	if c.dayStart.IsZero() || !sameDay(c.dayStart, now) {
		c.dayStart = now
		c.dayStartEquity = totalEquity
	}
	dayPnL := totalEquity - c.dayStartEquity

	exposure := 0.0
	if c.totalCapital > 0 {
		exposure = exposureValue / c.totalCapital
	}

	return types.PortfolioSnapshot{
		Timestamp:      now,
		TotalEquity:    totalEquity,
		HighWaterMark:  c.highWaterMark,
		Drawdown:       drawdown,
		DayStartEquity: c.dayStartEquity,
		DayPnL:         dayPnL,
		TotalExposure:  exposure,
		TotalCapital:   c.totalCapital,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Authorize validates a proposed signal against the hard limits and
// returns a tri-state verdict. Halt is sticky: once triggered, every
// subsequent call returns Halt regardless of the signal until Reset is
// called. A Deny suppresses only the individual signal; it never mutates
// trader state.
func (c *Controller) Authorize(now time.Time, signal types.Signal, markPrices map[string]float64) Authorization {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.halted {
		return Authorization{Verdict: VerdictHalt, Reason: c.haltReason}
	}

	snap := c.snapshotLocked(now, markPrices)

	if snap.Drawdown >= c.cfg.MaxDrawdown {
		c.halted = true
		c.haltReason = DenyDrawdownCap
		return Authorization{Verdict: VerdictHalt, Reason: DenyDrawdownCap}
	}

	if snap.DayStartEquity > 0 && snap.DayPnL/snap.DayStartEquity <= -c.cfg.MaxDailyLossFraction {
		c.halted = true
		c.haltReason = DenyDailyLossCap
		return Authorization{Verdict: VerdictHalt, Reason: DenyDailyLossCap}
	}

	if signal.Kind == types.SignalBuy && snap.TotalExposure >= c.cfg.MaxExposureFraction {
		return Authorization{Verdict: VerdictDeny, Reason: DenyExposureCap}
	}

	return Authorization{Verdict: VerdictAllow}
}

// Reset clears the sticky halt, restoring normal authorization. This is
// the only way a Halted controller resumes; it never happens implicitly.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halted = false
	c.haltReason = ""
}

// IsHalted reports whether the controller is currently in the sticky Halt
// state.
func (c *Controller) IsHalted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}

// HaltError builds the *boterrors.BotError reported to the engine when
// Authorize returns Halt, so callers log and propagate a single
// consistent error shape.
func HaltError(reason DenyReason) *boterrors.BotError {
	return boterrors.NewRiskHalt("portfolio", string(reason))
}
