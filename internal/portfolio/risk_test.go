package portfolio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/internal/grid"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/internal/regime"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/types"
)

func newFundedTrader(t *testing.T, pair string, capital float64) *grid.Trader {
	t.Helper()
	cfg := config.NewGridConfig(pair, 100, 5, 0.01, capital)
	trader, err := grid.NewTrader(cfg)
	require.NoError(t, err)
	_, err = trader.UpdateWithPrice(100, time.Now(), regime.RegimeRanging)
	require.NoError(t, err)
	return trader
}

// S5 — two traders, each capital 500; combined inventory*price reaches
// 620 (>60% of 1000). The next authorize denies on exposure cap.
func TestAuthorize_ExposureCapDenies(t *testing.T) {
	now := time.Now()
	traderA := newFundedTrader(t, "AAAUSDT", 500)
	traderB := newFundedTrader(t, "BBBUSDT", 500)
	require.NoError(t, traderA.ApplyFill(types.SideBuy, 100, 3.1, 0))
	require.NoError(t, traderB.ApplyFill(types.SideBuy, 100, 3.1, 0))

	ctrl := portfolio.New(portfolio.DefaultConfig(), 1000)
	ctrl.RegisterTrader("AAAUSDT", traderA)
	ctrl.RegisterTrader("BBBUSDT", traderB)

	marks := map[string]float64{"AAAUSDT": 100, "BBBUSDT": 100}
	snap := ctrl.Snapshot(now, marks)
	assert.InDelta(t, 0.62, snap.TotalExposure, 0.01)

	auth := ctrl.Authorize(now, types.BuySignal(99), marks)
	assert.Equal(t, portfolio.VerdictDeny, auth.Verdict)
	assert.Equal(t, portfolio.DenyExposureCap, auth.Reason)
}

func TestAuthorize_DrawdownHaltIsSticky(t *testing.T) {
	now := time.Now()
	trader := newFundedTrader(t, "AAAUSDT", 1000)
	ctrl := portfolio.New(portfolio.DefaultConfig(), 1000)
	ctrl.RegisterTrader("AAAUSDT", trader)

	marks := map[string]float64{"AAAUSDT": 100}
	// Prime the high-water mark at full capital.
	ctrl.Snapshot(now, marks)

	// Drive a simulated loss that blows through the 15% drawdown cap.
	require.NoError(t, trader.ApplyFill(types.SideBuy, 100, 8, 0))
	lossMarks := map[string]float64{"AAAUSDT": 74}

	auth := ctrl.Authorize(now, types.NoneSignal(), lossMarks)
	assert.Equal(t, portfolio.VerdictHalt, auth.Verdict)
	assert.Equal(t, portfolio.DenyDrawdownCap, auth.Reason)
	assert.True(t, ctrl.IsHalted())

	// Halt is sticky: a subsequent call returns Halt even against healthy
	// marks, until Reset is called.
	healthyMarks := map[string]float64{"AAAUSDT": 100}
	auth2 := ctrl.Authorize(now, types.NoneSignal(), healthyMarks)
	assert.Equal(t, portfolio.VerdictHalt, auth2.Verdict)

	ctrl.Reset()
	assert.False(t, ctrl.IsHalted())
}

func TestAuthorize_AllowsWithinLimits(t *testing.T) {
	now := time.Now()
	trader := newFundedTrader(t, "AAAUSDT", 1000)
	ctrl := portfolio.New(portfolio.DefaultConfig(), 1000)
	ctrl.RegisterTrader("AAAUSDT", trader)

	marks := map[string]float64{"AAAUSDT": 100}
	auth := ctrl.Authorize(now, types.BuySignal(99), marks)
	assert.Equal(t, portfolio.VerdictAllow, auth.Verdict)
}
