// Package engine implements the Live Engine's cooperative per-pair actor
// model from spec section 5: one goroutine owns each pair's Grid Trader
// exclusively (the single-writer-per-pair rule), price ticks and book
// deltas arrive over a buffered mailbox channel, and a stop flag is checked
// between price events and between risk authorizations. Grounded on the
// teacher's internal/engines lifecycle (Start/Stop, EngineType) and its
// internal/exchange adapter/websocket shapes, replacing the teacher's
// multi-engine DCA orchestration with one actor per Grid Trader routed
// through the shared Portfolio Risk Controller.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/internal/exchange"
	"github.com/vantrade/gridbot/internal/feed"
	"github.com/vantrade/gridbot/internal/grid"
	"github.com/vantrade/gridbot/internal/logger"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/internal/recovery"
	"github.com/vantrade/gridbot/internal/regime"
	"github.com/vantrade/gridbot/internal/safety"
	"github.com/vantrade/gridbot/internal/simulator"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

func wrapExecErr(err error) *boterrors.BotError {
	return boterrors.Wrap(err, boterrors.CategoryExchange, "exchange", "submit_order")
}

// Mode selects where a pair's orders are routed: the local Market
// Simulator for dry-run/paper trading, or a connected exchange adapter for
// live trading.
type Mode int

const (
	ModeDryRun Mode = iota
	ModeLive
)

// exchangeCallTimeout is the default per-call timeout for exchange I/O
// from spec section 5; on expiry the signal is dropped and logged.
const exchangeCallTimeout = 10 * time.Second

// Engine owns the set of per-pair actors, the shared Market Simulator
// (dry-run) or Exchange adapter (live), and the single Portfolio Risk
// Controller every actor authorizes signals through. It is constructed
// and torn down as a unit; there is no other shared mutable state beyond
// the Simulator's and Controller's own internal locks.
type Engine struct {
	mode     Mode
	sim      *simulator.Simulator
	exch     exchange.Exchange
	risk     *portfolio.Controller
	store    *storage.Store
	breakers *safety.Manager

	stopping atomic.Bool

	mu     sync.Mutex
	actors map[string]*pairActor
	wg     sync.WaitGroup
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithExchange switches the engine to live mode, routing orders through
// ex instead of the Market Simulator.
func WithExchange(ex exchange.Exchange) Option {
	return func(e *Engine) {
		e.mode = ModeLive
		e.exch = ex
	}
}

// WithStore attaches a persistence layer so trades and execution events
// are recorded as the engine runs.
func WithStore(store *storage.Store) Option {
	return func(e *Engine) { e.store = store }
}

// New creates an Engine in dry-run mode against a seeded Market Simulator,
// sharing risk across every registered pair.
func New(risk *portfolio.Controller, seed int64, opts ...Option) *Engine {
	e := &Engine{
		mode:     ModeDryRun,
		sim:      simulator.New(seed),
		risk:     risk,
		breakers: safety.NewManager(),
		actors:   make(map[string]*pairActor),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddPair registers a pair's Grid Trader as an actor and seeds its paper
// order book (dry-run mode only; live mode reads the exchange's real
// book). The actor does not start processing until Run is called.
func (e *Engine) AddPair(cfg *config.GridConfig, seedPrice float64) (*grid.Trader, error) {
	trader, err := grid.NewTrader(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct grid trader for %s: %w", cfg.Pair, err)
	}

	lg, err := logger.New(cfg.Pair)
	if err != nil {
		return nil, fmt.Errorf("construct logger for %s: %w", cfg.Pair, err)
	}

	a := &pairActor{
		engine:   e,
		cfg:      cfg,
		trader:   trader,
		detector: regime.NewDetector(nil),
		logger:   lg,
		rec:      recovery.New(lg),
		breaker:  e.breakers.GetOrCreate(cfg.Pair, safety.CircuitBreakerConfig{}),
		mailbox:  make(chan feed.Update, 256),
	}

	if e.mode == ModeDryRun {
		spread := seedPrice * 0.0005
		e.sim.InitializeOrderBook(cfg.Pair, types.BookSnapshot{
			Pair: cfg.Pair,
			Bids: []types.BookLevel{{Price: seedPrice - spread, Size: 1e6}},
			Asks: []types.BookLevel{{Price: seedPrice + spread, Size: 1e6}},
		})
	}

	e.risk.RegisterTrader(cfg.Pair, trader)

	e.mu.Lock()
	e.actors[cfg.Pair] = a
	e.mu.Unlock()

	return trader, nil
}

// Run starts every registered pair's actor and the feed dispatch loop,
// blocking until ctx is cancelled or Stop is called. In-flight orders are
// allowed to complete before Run returns, per the cancellation contract in
// spec section 5.
func (e *Engine) Run(ctx context.Context, updates <-chan feed.Update) error {
	e.mu.Lock()
	for _, a := range e.actors {
		e.wg.Add(1)
		go a.run(ctx, &e.wg)
	}
	e.mu.Unlock()

	e.dispatch(ctx, updates)
	e.wg.Wait()
	return ctx.Err()
}

// dispatch demuxes the single feed channel to each pair's private mailbox,
// the only place a tick or book delta crosses from the feed goroutine into
// an actor's exclusive ownership.
func (e *Engine) dispatch(ctx context.Context, updates <-chan feed.Update) {
	for {
		select {
		case <-ctx.Done():
			e.closeMailboxes()
			return
		case u, ok := <-updates:
			if !ok {
				e.closeMailboxes()
				return
			}
			pair := ""
			if u.Tick != nil {
				pair = u.Tick.Pair
			} else if u.Book != nil {
				pair = u.Book.Pair
			}
			e.mu.Lock()
			a, found := e.actors[pair]
			e.mu.Unlock()
			if !found {
				continue
			}
			select {
			case a.mailbox <- u:
			case <-ctx.Done():
				e.closeMailboxes()
				return
			}
		}
	}
}

func (e *Engine) closeMailboxes() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.actors {
		close(a.mailbox)
	}
}

// Stop requests a clean shutdown, checked between price events and
// between authorizations by every running actor.
func (e *Engine) Stop() {
	e.stopping.Store(true)
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	return e.stopping.Load()
}

// Trader returns the Grid Trader registered for pair, if any, for CLI
// status reporting.
func (e *Engine) Trader(pair string) (*grid.Trader, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.actors[pair]
	if !ok {
		return nil, false
	}
	return a.trader, true
}

// QuiescedPairs returns every pair whose circuit breaker is currently
// Open, per spec section 7's per-pair quiesce behavior.
func (e *Engine) QuiescedPairs() []string {
	return e.breakers.OpenNames()
}
