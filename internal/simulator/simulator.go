package simulator

import (
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/pkg/types"
)

// Maker and taker commission rates, applied to filled notional. An order
// is taker iff it crosses the spread on submission.
const (
	MakerFeeRate = 0.0016
	TakerFeeRate = 0.0026
)

// MinLatencyMS and MaxLatencyMS bound the uniform latency draw applied to
// every execution.
const (
	MinLatencyMS = 50.0
	MaxLatencyMS = 200.0
)

// Simulator is a deterministic, multi-pair order-book matching engine. It
// owns every order book exclusively; all mutations are serialized under
// mu, matching the single-owner shared-state rule in the concurrency
// model. Given the same seed, price series, and order sequence, it
// produces byte-identical fills.
type Simulator struct {
	mu       sync.Mutex
	books    map[string]*book
	rng      *rand.Rand
	slippage SlippageModel
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

// WithSlippageModel overrides the default Realistic slippage model.
func WithSlippageModel(model SlippageModel) Option {
	return func(s *Simulator) { s.slippage = model }
}

// New creates a Simulator seeded deterministically from seed. Backtests
// and optimizer candidate evaluations must supply a fixed seed to satisfy
// the reproducibility property; live dry-run mode may seed from a
// recorded value for auditability.
func New(seed int64, opts ...Option) *Simulator {
	s := &Simulator{
		books:    make(map[string]*book),
		rng:      rand.New(rand.NewSource(seed)),
		slippage: DefaultSlippageModel(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeOrderBook atomically replaces the book for pair.
func (s *Simulator) InitializeOrderBook(pair string, snapshot types.BookSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[pair] = newBook(pair, snapshot)
}

// ApplyFeedUpdate applies an incremental bid/ask change to pair's book,
// removing the level when update.NewSize is 0.
func (s *Simulator) ApplyFeedUpdate(pair string, update types.BookUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[pair]
	if !ok {
		return boterrors.NewInvalidOrder("simulator", "apply_feed_update", "unknown pair: "+pair)
	}
	b.applyUpdate(update)
	return nil
}

// Snapshot returns a defensive copy of pair's current book.
func (s *Simulator) Snapshot(pair string) (types.BookSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[pair]
	if !ok {
		return types.BookSnapshot{}, false
	}
	return b.snapshot(), true
}

// ExecuteOrder matches order against the opposite side of its pair's
// book: Market orders walk outward until filled or the book is
// exhausted; Limit orders cross only within their limit, leaving any
// unfilled remainder unreported as a resting order (the simulator does
// not rest limits). Latency is drawn from U[50ms, 200ms] using the
// Simulator's seeded RNG, so repeated runs with the same seed and order
// sequence draw identical latencies.
func (s *Simulator) ExecuteOrder(order types.Order) (*types.Fill, error) {
	if order.Quantity <= 0 || math.IsNaN(order.Quantity) || math.IsInf(order.Quantity, 0) {
		return nil, boterrors.NewInvalidOrder("simulator", "execute_order", "quantity must be positive and finite")
	}
	if order.Type == types.OrderTypeLimit && (order.LimitPrice <= 0 || math.IsNaN(order.LimitPrice) || math.IsInf(order.LimitPrice, 0)) {
		return nil, boterrors.NewInvalidOrder("simulator", "execute_order", "limit price must be positive and finite")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[order.Pair]
	if !ok {
		return nil, boterrors.NewInvalidOrder("simulator", "execute_order", "unknown pair: "+order.Pair)
	}

	latency := MinLatencyMS + s.rng.Float64()*(MaxLatencyMS-MinLatencyMS)

	isBuy := order.Side == types.SideBuy
	var opposite []types.BookLevel
	var bestOpposite float64
	var haveBest bool
	if isBuy {
		opposite = b.asks
		bestOpposite, haveBest = b.bestAsk()
	} else {
		opposite = b.bids
		bestOpposite, haveBest = b.bestBid()
	}
	if !haveBest {
		return nil, boterrors.NewEmptyBook("simulator", "execute_order")
	}

	limitPrice := 0.0
	if order.Type == types.OrderTypeLimit {
		limitPrice = order.LimitPrice
	}

	filledQty, notional, worstPrice, _, remaining := walkOpposite(opposite, order.Quantity, limitPrice, isBuy)
	if isBuy {
		b.asks = remaining
	} else {
		b.bids = remaining
	}

	if filledQty <= 0 {
		return &types.Fill{
			OrderID:           order.ID,
			RemainingQuantity: order.Quantity,
			LatencyMS:         latency,
		}, nil
	}

	// An order is taker iff it crosses the spread on submission: any
	// market order always does (it targets the opposite side directly);
	// a limit order is taker too, since the simulator only fills limit
	// orders that already cross.
	feeRate := TakerFeeRate
	slip := s.slippage.compute(notional, bestOpposite, worstPrice, s.rng)

	avgPrice := notional / filledQty
	fee := notional * feeRate

	fill := &types.Fill{
		OrderID:           order.ID,
		FilledQuantity:    filledQty,
		AveragePrice:      avgPrice,
		Fee:               fee,
		Slippage:          slip,
		LatencyMS:         latency,
		RemainingQuantity: order.Quantity - filledQty,
	}
	return fill, nil
}

// NewOrderID returns a fresh unique order identifier, shared by the
// Backtest Driver and exchange adapters for orders routed through this
// simulator.
func NewOrderID() string {
	return uuid.NewString()
}
