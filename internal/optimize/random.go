package optimize

import "math/rand"

// RunRandom uniformly samples iterations candidates from the parameter
// space and evaluates them. seed makes the sampled candidate set
// reproducible.
func RunRandom(ctx EvalContext, iterations int, seed int64, workerCount int) []Evaluation {
	rng := rand.New(rand.NewSource(seed))

	candidates := make([]Candidate, iterations)
	for i := range candidates {
		candidates[i] = randomCandidate(rng)
	}

	pool := newWorkerPool(ctx, workerCount)
	results := pool.evaluateAll(candidates)
	scoreBatch(results)
	return results
}

func randomCandidate(rng *rand.Rand) Candidate {
	return Candidate{
		GridLevels:  GridLevelsMin + rng.Intn(GridLevelsMax-GridLevelsMin+1),
		GridSpacing: SpacingMin + rng.Float64()*(SpacingMax-SpacingMin),
		Timeframe:   Timeframes[rng.Intn(len(Timeframes))],
		RiskSizing:  RiskSizingModes[rng.Intn(len(RiskSizingModes))],
	}
}
