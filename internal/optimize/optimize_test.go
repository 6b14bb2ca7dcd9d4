package optimize_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/optimize"
	"github.com/vantrade/gridbot/pkg/types"
)

func sineSeries(base, amplitudeFraction float64, count int) []types.OHLCV {
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

func evalContext() optimize.EvalContext {
	return optimize.EvalContext{
		Pair:      "ETHUSDT",
		BasePrice: 2500,
		Capital:   10000,
		Series:    sineSeries(2500, 0.05, 150),
		Cost:      backtest.DefaultCostModel(11),
	}
}

func TestRunGrid_ProducesScoredCandidates(t *testing.T) {
	ctx := evalContext()
	results := optimize.RunGrid(ctx, optimize.GridSteps{SpacingSteps: 2}, 4)
	require.NotEmpty(t, results)

	top, ok := optimize.Best(results)
	require.True(t, ok)
	assert.GreaterOrEqual(t, top.Score, 0.0)
}

func TestRunRandom_Deterministic(t *testing.T) {
	ctx := evalContext()
	a := optimize.RunRandom(ctx, 8, 99, 4)
	b := optimize.RunRandom(ctx, 8, 99, 4)
	require.Len(t, a, 8)
	require.Len(t, b, 8)
	assert.Equal(t, a[0].Candidate, b[0].Candidate)
	assert.Equal(t, a[0].Score, b[0].Score)
}

func TestRunGenetic_ImprovesOrMatchesInitialPopulation(t *testing.T) {
	ctx := evalContext()
	gc := optimize.DefaultGeneticConfig(5)
	gc.PopulationSize = 6
	gc.Generations = 4

	results := optimize.RunGenetic(ctx, gc, 4)
	require.NotEmpty(t, results)
	top, ok := optimize.Best(results)
	require.True(t, ok)
	assert.GreaterOrEqual(t, top.Score, 0.0)
}

func TestRunBayesian_ProducesRequestedIterationCount(t *testing.T) {
	ctx := evalContext()
	results := optimize.RunBayesian(ctx, 12, 3, 4)
	assert.Len(t, results, 12)
}

func TestBest_ExcludesDegenerateCandidates(t *testing.T) {
	results := []optimize.Evaluation{
		{Score: 0, Degenerate: true},
		{Score: 0.7, Degenerate: false},
		{Score: 0.3, Degenerate: false},
	}
	top, ok := optimize.Best(results)
	require.True(t, ok)
	assert.Equal(t, 0.7, top.Score)
}
