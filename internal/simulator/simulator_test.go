package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/pkg/types"
)

func sampleBook() types.BookSnapshot {
	return types.BookSnapshot{
		Pair: "ETHUSDT",
		Bids: []types.BookLevel{{Price: 2500, Size: 2}, {Price: 2499, Size: 3}},
		Asks: []types.BookLevel{{Price: 2501, Size: 2}, {Price: 2502, Size: 3}},
	}
}

// S4 — deterministic simulator: seed=42, market buy qty=3 walks 2@2501 +
// 1@2502, average 2501.333..., taker fee on filled notional.
func TestExecuteOrder_MarketBuyWalksBook(t *testing.T) {
	sim := New(42)
	sim.InitializeOrderBook("ETHUSDT", sampleBook())

	order := types.Order{ID: NewOrderID(), Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 3}
	fill, err := sim.ExecuteOrder(order)
	require.NoError(t, err)

	require.Equal(t, 3.0, fill.FilledQuantity)
	assert.InDelta(t, 2501.333333, fill.AveragePrice, 1e-4)
	expectedFee := (2*2501.0 + 1*2502.0) * TakerFeeRate
	assert.InDelta(t, expectedFee, fill.Fee, 1e-9)
	assert.GreaterOrEqual(t, fill.LatencyMS, MinLatencyMS)
	assert.LessOrEqual(t, fill.LatencyMS, MaxLatencyMS)
	assert.Equal(t, 0.0, fill.RemainingQuantity)

	snap, ok := sim.Snapshot("ETHUSDT")
	require.True(t, ok)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, 2502.0, snap.Asks[0].Price)
	assert.Equal(t, 2.0, snap.Asks[0].Size)
}

func TestExecuteOrder_Deterministic(t *testing.T) {
	order := types.Order{ID: "o1", Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 3}

	sim1 := New(42)
	sim1.InitializeOrderBook("ETHUSDT", sampleBook())
	fill1, err := sim1.ExecuteOrder(order)
	require.NoError(t, err)

	sim2 := New(42)
	sim2.InitializeOrderBook("ETHUSDT", sampleBook())
	fill2, err := sim2.ExecuteOrder(order)
	require.NoError(t, err)

	assert.Equal(t, fill1, fill2)
}

func TestExecuteOrder_PartialFillWhenBookRunsOut(t *testing.T) {
	sim := New(1)
	sim.InitializeOrderBook("ETHUSDT", types.BookSnapshot{
		Pair: "ETHUSDT",
		Asks: []types.BookLevel{{Price: 2501, Size: 1}},
	})

	order := types.Order{ID: "o2", Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 5}
	fill, err := sim.ExecuteOrder(order)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fill.FilledQuantity)
	assert.Equal(t, 4.0, fill.RemainingQuantity)
}

func TestExecuteOrder_EmptyBookFails(t *testing.T) {
	sim := New(1)
	sim.InitializeOrderBook("ETHUSDT", types.BookSnapshot{Pair: "ETHUSDT"})

	order := types.Order{ID: "o3", Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 1}
	_, err := sim.ExecuteOrder(order)
	assert.Error(t, err)
}

func TestExecuteOrder_InvalidQuantity(t *testing.T) {
	sim := New(1)
	sim.InitializeOrderBook("ETHUSDT", sampleBook())

	order := types.Order{ID: "o4", Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 0}
	_, err := sim.ExecuteOrder(order)
	assert.Error(t, err)

	order.Quantity = math.NaN()
	_, err = sim.ExecuteOrder(order)
	assert.Error(t, err)
}

func TestExecuteOrder_LimitRespectsPrice(t *testing.T) {
	sim := New(7)
	sim.InitializeOrderBook("ETHUSDT", sampleBook())

	// A limit buy at 2501 should only cross the first level, not the second.
	order := types.Order{ID: "o5", Pair: "ETHUSDT", Side: types.SideBuy, Type: types.OrderTypeLimit, LimitPrice: 2501, Quantity: 3}
	fill, err := sim.ExecuteOrder(order)
	require.NoError(t, err)
	assert.Equal(t, 2.0, fill.FilledQuantity)
	assert.Equal(t, 1.0, fill.RemainingQuantity)
}

func TestApplyFeedUpdate_RemovesZeroSizeLevel(t *testing.T) {
	sim := New(1)
	sim.InitializeOrderBook("ETHUSDT", sampleBook())

	require.NoError(t, sim.ApplyFeedUpdate("ETHUSDT", types.BookUpdate{Side: types.SideSell, Price: 2501, NewSize: 0}))
	snap, _ := sim.Snapshot("ETHUSDT")
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, 2502.0, snap.Asks[0].Price)
}
