package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
)

// Round-trip: serialize a strategy, persist it, reload it, and confirm
// the reconstructed GridConfig is byte-identical in the fields that
// matter to backtest determinism.
func TestStrategyFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ETHUSDT.json")

	cfg := config.NewGridConfig("ETHUSDT", 2500, 10, 0.01, 5000)
	meta := storage.OptimizationMetadata{Strategy: "genetic", Iterations: 50, Score: 0.82, Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	perf := storage.PerformanceSummary{Return: 0.12, Sharpe: 1.4, Drawdown: 0.08, TradeCount: 37}

	original := storage.FromGridConfig(cfg, meta, perf)
	require.NoError(t, storage.WriteStrategyFile(path, original))

	loaded, err := storage.ReadStrategyFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	rebuilt := loaded.ToGridConfig()
	assert.Equal(t, cfg.Pair, rebuilt.Pair)
	assert.Equal(t, cfg.BasePrice, rebuilt.BasePrice)
	assert.Equal(t, cfg.Levels, rebuilt.Levels)
	assert.Equal(t, cfg.Spacing, rebuilt.Spacing)
	assert.Equal(t, cfg.Capital, rebuilt.Capital)
}

func TestStore_StrategiesAndTrades(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)

	sf := storage.FromGridConfig(config.NewGridConfig("ETHUSDT", 2500, 10, 0.01, 5000),
		storage.OptimizationMetadata{Strategy: "random"}, storage.PerformanceSummary{})
	require.NoError(t, store.SaveStrategy("strat-1", sf))

	loaded, ok, err := store.LoadStrategy("strat-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", loaded.TradingPair)

	require.NoError(t, store.AppendTrade(storage.TradeRecord{ID: "t1", StrategyID: "strat-1", Pair: "ETHUSDT", Side: "buy", Price: 2500, Quantity: 1, Timestamp: time.Now()}))
	require.NoError(t, store.AppendTrade(storage.TradeRecord{ID: "t2", StrategyID: "strat-1", Pair: "ETHUSDT", Side: "sell", Price: 2550, Quantity: 1, Timestamp: time.Now()}))

	trades, err := store.TradesForPair("ETHUSDT")
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}
