package backtest_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

// sineSeries generates count hourly bars oscillating around base with the
// given amplitude fraction, so a grid trader crosses levels on both sides
// repeatedly.
func sineSeries(base float64, amplitudeFraction float64, count int) []types.OHLCV {
	series := make([]types.OHLCV, count)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		price := base * (1 + amplitudeFraction*math.Sin(float64(i)*0.2))
		series[i] = types.OHLCV{
			Open: price, High: price * 1.001, Low: price * 0.999, Close: price,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return series
}

func TestDriver_Run_OscillatingSeriesProducesTrades(t *testing.T) {
	cfg := config.NewGridConfig("ETHUSDT", 2500, 8, 0.01, 10000)
	driver, err := backtest.NewDriver(cfg, backtest.DefaultCostModel(7), nil)
	require.NoError(t, err)

	result, err := driver.Run(sineSeries(2500, 0.05, 200))
	require.NoError(t, err)

	assert.Greater(t, result.TradeCount, 0)
	assert.Len(t, result.EquityCurve, 200)
	assert.GreaterOrEqual(t, result.MaxDrawdown, 0.0)
	assert.Greater(t, result.FeesPaid, 0.0)
}

func TestDriver_Run_Deterministic(t *testing.T) {
	cfg := config.NewGridConfig("ETHUSDT", 2500, 8, 0.01, 10000)
	series := sineSeries(2500, 0.05, 150)

	driverA, err := backtest.NewDriver(cfg, backtest.DefaultCostModel(42), nil)
	require.NoError(t, err)
	resultA, err := driverA.Run(series)
	require.NoError(t, err)

	driverB, err := backtest.NewDriver(cfg, backtest.DefaultCostModel(42), nil)
	require.NoError(t, err)
	resultB, err := driverB.Run(series)
	require.NoError(t, err)

	assert.Equal(t, resultA.TotalReturn, resultB.TotalReturn)
	assert.Equal(t, resultA.TradeCount, resultB.TradeCount)
	assert.Equal(t, resultA.FeesPaid, resultB.FeesPaid)
}

func TestDriver_Run_FlatSeriesNoTrades(t *testing.T) {
	cfg := config.NewGridConfig("ETHUSDT", 2500, 8, 0.01, 10000)
	driver, err := backtest.NewDriver(cfg, backtest.DefaultCostModel(1), nil)
	require.NoError(t, err)

	flat := make([]types.OHLCV, 50)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range flat {
		flat[i] = types.OHLCV{Open: 2500, High: 2500, Low: 2500, Close: 2500, Timestamp: ts.Add(time.Duration(i) * time.Hour)}
	}

	result, err := driver.Run(flat)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TradeCount)
	assert.Equal(t, 0.0, result.TotalReturn)
}
