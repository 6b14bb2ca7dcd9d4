package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vantrade/gridbot/internal/feed"
	"github.com/vantrade/gridbot/internal/grid"
	"github.com/vantrade/gridbot/internal/logger"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/internal/recovery"
	"github.com/vantrade/gridbot/internal/regime"
	"github.com/vantrade/gridbot/internal/safety"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

// priceWindowSize is the trailing sample count the regime detector
// classifies over; it is larger than the detector's 50-period slow SMA, so
// a full window always holds enough samples to classify.
const priceWindowSize = 60

// pairActor is the single goroutine that exclusively owns one pair's Grid
// Trader and regime detector. All trader mutation happens here; nothing
// outside this goroutine ever calls a mutating Trader method, satisfying
// the single-writer-per-pair rule.
type pairActor struct {
	engine   *Engine
	cfg      *config.GridConfig
	trader   *grid.Trader
	detector *regime.Detector
	logger   *logger.Logger
	rec      *recovery.Handler
	breaker  *safety.CircuitBreaker
	mailbox  chan feed.Update

	prices    []float64
	lastPrice float64
}

func (a *pairActor) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer a.logger.Close()

	for {
		if a.engine.Stopped() {
			a.logger.Status("stop requested, actor exiting")
			return
		}
		select {
		case <-ctx.Done():
			return
		case u, ok := <-a.mailbox:
			if !ok {
				return
			}
			a.handleUpdate(ctx, u)
		}
	}
}

func (a *pairActor) handleUpdate(ctx context.Context, u feed.Update) {
	if u.Book != nil && a.engine.mode == ModeDryRun {
		if err := a.engine.sim.ApplyFeedUpdate(u.Book.Pair, *u.Book); err != nil {
			a.logger.Warning("apply book update: %v", err)
		}
		return
	}
	if u.Tick == nil {
		return
	}

	a.lastPrice = u.Tick.Price
	a.prices = append(a.prices, u.Tick.Price)
	if len(a.prices) > priceWindowSize {
		a.prices = a.prices[len(a.prices)-priceWindowSize:]
	}

	currentRegime, _, err := a.detector.Update(a.cfg.Pair, a.prices, u.Tick.Price, u.Tick.Timestamp)
	if err != nil {
		a.logger.LogWarning("regime", "classify: %v", err)
		currentRegime = regime.RegimeType(0)
	}

	signal, err := a.trader.UpdateWithPrice(u.Tick.Price, u.Tick.Timestamp, currentRegime)
	if err != nil {
		a.logger.LogError("update_with_price", err)
		return
	}
	if signal.Kind == types.SignalNone {
		return
	}

	if a.engine.Stopped() {
		return
	}
	a.actOnSignal(ctx, signal, u.Tick.Timestamp)
}

// actOnSignal authorizes a non-None signal against the shared Portfolio
// Risk Controller, executes it if allowed, and records the outcome
// regardless of verdict.
func (a *pairActor) actOnSignal(ctx context.Context, signal types.Signal, ts time.Time) {
	mark := map[string]float64{a.cfg.Pair: a.lastPrice}
	auth := a.engine.risk.Authorize(ts, signal, mark)

	if a.engine.store != nil {
		_ = a.engine.store.AppendExecutionEvent(storage.ExecutionEvent{
			StrategyID: a.cfg.Pair,
			Pair:       a.cfg.Pair,
			SignalKind: string(signal.Kind),
			Verdict:    auth.Verdict.String(),
			Timestamp:  ts,
		})
	}

	switch auth.Verdict {
	case portfolio.VerdictHalt:
		a.logger.Risk("halted: %s", auth.Reason)
		return
	case portfolio.VerdictDeny:
		a.logger.Risk("signal %s denied: %s", signal.Kind, auth.Reason)
		return
	}

	// Halt is a pure notification, never an order: a downward emergency
	// exit has nothing to sell and shorting is forbidden, so there is no
	// fill to execute or apply.
	if signal.Kind == types.SignalHalt {
		a.logger.Risk("emergency halt: %s", signal.Reason)
		return
	}

	fill, err := a.execute(ctx, signal)
	if err != nil {
		a.logger.LogError("execute_signal", err)
		return
	}
	if fill == nil {
		return
	}

	side := types.SideBuy
	if signal.Kind == types.SignalSell {
		side = types.SideSell
	}
	if err := a.trader.ApplyFill(side, fill.AveragePrice, fill.FilledQuantity, fill.Fee); err != nil {
		a.logger.LogError("apply_fill", err)
		return
	}
	a.logger.Trade("%s %.8f @ %.2f fee=%.4f", side, fill.FilledQuantity, fill.AveragePrice, fill.Fee)

	if a.engine.store != nil {
		rec := storage.TradeRecordFromFill(fmt.Sprintf("%s-%d", a.cfg.Pair, ts.UnixNano()), a.cfg.Pair, a.cfg.Pair, side, *fill, ts)
		_ = a.engine.store.AppendTrade(rec)
	}
}

// execute routes an authorized signal to the Market Simulator (dry-run) or
// the connected exchange adapter (live), wrapped in the pair's circuit
// breaker so a sustained run of exchange failures quiesces the pair
// instead of retrying forever.
func (a *pairActor) execute(ctx context.Context, signal types.Signal) (*types.Fill, error) {
	side := types.SideBuy
	if signal.Kind == types.SignalSell {
		side = types.SideSell
	}
	order := types.Order{
		ID:              feedOrderID(a.cfg.Pair),
		Pair:            a.cfg.Pair,
		Side:            side,
		Type:            types.OrderTypeMarket,
		Quantity:        a.cfg.DefaultTradeSize,
		SubmitTimestamp: time.Now(),
	}

	if a.engine.mode == ModeDryRun {
		return a.engine.sim.ExecuteOrder(order)
	}

	var fill *types.Fill
	callErr := a.breaker.Call(func() error {
		callCtx, cancel := context.WithTimeout(ctx, exchangeCallTimeout)
		defer cancel()
		f, err := a.engine.exch.SubmitOrder(callCtx, order)
		if err != nil {
			result := a.rec.HandleError(wrapExecErr(err), "exchange", "submit_order", 0)
			if result.Quiesce {
				a.logger.Error("exchange quiesced for %s: %s", a.cfg.Pair, result.Message)
			}
			return err
		}
		a.rec.Reset()
		fill = f
		return nil
	})
	if callErr != nil {
		return nil, callErr
	}
	return fill, nil
}

func feedOrderID(pair string) string {
	return fmt.Sprintf("%s-%d", pair, time.Now().UnixNano())
}
