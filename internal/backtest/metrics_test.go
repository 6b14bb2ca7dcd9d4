package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResult_FinalizeComputesReturnAndDrawdown(t *testing.T) {
	r := newResult(4)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.recordBar(start, 1000, 0)
	r.recordBar(start.Add(time.Hour), 1100, 0.1)
	r.recordBar(start.Add(2*time.Hour), 900, 0.1)
	r.recordBar(start.Add(3*time.Hour), 1050, 0.1)

	r.finalize(1000, 3)

	assert.Equal(t, 3, r.TradeCount)
	assert.InDelta(t, 0.05, r.TotalReturn, 1e-9)
	assert.InDelta(t, (1100.0-900.0)/1100.0, r.MaxDrawdown, 1e-9)
}

func TestResult_RecordRealizedPnL_TracksWinRate(t *testing.T) {
	r := newResult(1)
	r.recordRealizedPnL(0) // a buy fill: never counted
	r.recordRealizedPnL(10)
	r.recordRealizedPnL(-5)
	r.finalize(1000, 3)

	assert.InDelta(t, 0.5, r.WinRate, 1e-9)
}

func TestResult_Finalize_EmptyCurve(t *testing.T) {
	r := newResult(0)
	r.finalize(1000, 0)
	assert.Equal(t, 0.0, r.TotalReturn)
	assert.Equal(t, 0.0, r.SharpeRatio)
}
