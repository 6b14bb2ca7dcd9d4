package optimize

import "github.com/vantrade/gridbot/pkg/config"

// GridSteps controls the discretization of the Cartesian product Grid
// search walks: how many evenly spaced spacing values to sample between
// SpacingMin and SpacingMax. Levels and timeframe are enumerated exactly
// (their domains are already small integers/enums).
type GridSteps struct {
	SpacingSteps int // default 10
}

// DefaultGridSteps returns the default discretization.
func DefaultGridSteps() GridSteps {
	return GridSteps{SpacingSteps: 10}
}

// RunGrid performs an exhaustive Cartesian-product search over
// grid_levels x grid_spacing x timeframe, evaluating every candidate on
// workerCount workers (0 defaults to the CPU count). Risk-sizing is fixed
// to config.RiskSizingFixed throughout, since Grid search's combinatorics
// already cover the other three genes; spec.md names risk-sizing as an
// "optional" gene and the optimizer only varies it explicitly in Random/
// Genetic/Bayesian search.
func RunGrid(ctx EvalContext, steps GridSteps, workerCount int) []Evaluation {
	if steps.SpacingSteps < 1 {
		steps.SpacingSteps = 1
	}

	var candidates []Candidate
	for levels := GridLevelsMin; levels <= GridLevelsMax; levels++ {
		for _, spacing := range linspace(SpacingMin, SpacingMax, steps.SpacingSteps) {
			for _, tf := range Timeframes {
				candidates = append(candidates, Candidate{
					GridLevels:  levels,
					GridSpacing: spacing,
					Timeframe:   tf,
					RiskSizing:  config.RiskSizingFixed,
				})
			}
		}
	}

	pool := newWorkerPool(ctx, workerCount)
	results := pool.evaluateAll(candidates)
	scoreBatch(results)
	return results
}

// linspace returns n evenly spaced values in [lo, hi] inclusive, n >= 1.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = lo + step*float64(i)
	}
	return out
}
