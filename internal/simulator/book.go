// Package simulator implements the Market Simulator: a deterministic,
// in-memory limit order book and matching engine that replays an
// exchange's price-time priority behavior, including latency, slippage,
// and fees. No repo in the retrieval pack implements a standalone order
// book, so this package is newly written in the teacher's idiom (checked
// arithmetic, typed *boterrors.BotError failures, mutex-guarded shared
// state) grounded on the directional-slippage and maker/taker fee
// patterns in the teacher's backtest engine.
package simulator

import (
	"sort"

	"github.com/vantrade/gridbot/pkg/types"
)

// book is the mutable two-sided order book for one pair: bids sorted
// descending by price, asks sorted ascending by price. The Simulator owns
// all books exclusively and serializes every mutation under its mutex.
type book struct {
	pair string
	bids []types.BookLevel
	asks []types.BookLevel
}

func newBook(pair string, snapshot types.BookSnapshot) *book {
	b := &book{pair: pair}
	b.bids = append([]types.BookLevel(nil), snapshot.Bids...)
	b.asks = append([]types.BookLevel(nil), snapshot.Asks...)
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].Price > b.bids[j].Price })
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].Price < b.asks[j].Price })
	return b
}

// snapshot returns a defensive copy of the current book state.
func (b *book) snapshot() types.BookSnapshot {
	return types.BookSnapshot{
		Pair: b.pair,
		Bids: append([]types.BookLevel(nil), b.bids...),
		Asks: append([]types.BookLevel(nil), b.asks...),
	}
}

// bestBid and bestAsk return the top of book, or (0, false) if that side
// is empty.
func (b *book) bestBid() (float64, bool) {
	if len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[0].Price, true
}

func (b *book) bestAsk() (float64, bool) {
	if len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].Price, true
}

// applyUpdate inserts, replaces, or removes a single price level on one
// side of the book, keeping the side sorted. A NewSize of 0 removes the
// level entirely.
func (b *book) applyUpdate(update types.BookUpdate) {
	switch update.Side {
	case types.SideBuy:
		b.bids = upsertLevel(b.bids, update.Price, update.NewSize, true)
	case types.SideSell:
		b.asks = upsertLevel(b.asks, update.Price, update.NewSize, false)
	}
}

// upsertLevel replaces the level at price with newSize (removing it when
// newSize is 0), re-sorting the side descending (bids) or ascending
// (asks).
func upsertLevel(levels []types.BookLevel, price, newSize float64, descending bool) []types.BookLevel {
	idx := -1
	for i, lvl := range levels {
		if lvl.Price == price {
			idx = i
			break
		}
	}

	if newSize <= 0 {
		if idx >= 0 {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if idx >= 0 {
		levels[idx].Size = newSize
		return levels
	}

	levels = append(levels, types.BookLevel{Price: price, Size: newSize})
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// walkOpposite consumes up to `quantity` from the given side (bids when
// matching a Sell, asks when matching a Buy), respecting an optional
// limit price (0 means no limit, i.e. a market order). It returns the
// filled quantity, the notional consumed, the worst price touched, and
// the per-level walk for slippage computation, and mutates the book to
// reflect the consumed size.
func walkOpposite(levels []types.BookLevel, quantity, limitPrice float64, isBuy bool) (filledQty, notional, worstPrice float64, walk []types.BookLevel, remaining []types.BookLevel) {
	remaining = levels
	walkIdx := 0
	for walkIdx < len(remaining) && quantity > 1e-12 {
		lvl := remaining[walkIdx]
		if limitPrice > 0 {
			if isBuy && lvl.Price > limitPrice {
				break
			}
			if !isBuy && lvl.Price < limitPrice {
				break
			}
		}

		take := lvl.Size
		if take > quantity {
			take = quantity
		}

		filledQty += take
		notional += take * lvl.Price
		worstPrice = lvl.Price
		walk = append(walk, types.BookLevel{Price: lvl.Price, Size: take})
		quantity -= take

		if take >= lvl.Size-1e-12 {
			remaining = append(remaining[:walkIdx], remaining[walkIdx+1:]...)
			continue
		}
		remaining[walkIdx].Size -= take
		walkIdx++
	}
	return filledQty, notional, worstPrice, walk, remaining
}
