package optimize

import "math/rand"

// bayesianCandidatePoolSize is how many random candidates are proposed at
// each surrogate-guided step; expected improvement is evaluated across the
// pool and the highest-EI candidate is the one actually backtested.
const bayesianCandidatePoolSize = 200

// RunBayesian performs Bayesian optimization: an initial 10 random samples
// followed by iterations-10 surrogate-guided picks from a Gaussian-process
// model with an RBF kernel over normalized parameters, using expected
// improvement as the acquisition function. The initial random batch
// evaluates in parallel on workerCount workers; the surrogate-guided phase
// is inherently sequential, since each pick depends on the posterior
// fitted to every prior evaluation.
func RunBayesian(ctx EvalContext, iterations int, seed int64, workerCount int) []Evaluation {
	rng := rand.New(rand.NewSource(seed))

	initialCount := 10
	if iterations < initialCount {
		initialCount = iterations
	}

	initial := make([]Candidate, initialCount)
	for i := range initial {
		initial[i] = randomCandidate(rng)
	}

	pool := newWorkerPool(ctx, workerCount)
	evaluations := pool.evaluateAll(initial)
	scoreBatch(evaluations)

	for i := initialCount; i < iterations; i++ {
		candidate := proposeBySurrogate(evaluations, rng)
		next := Evaluate(ctx, candidate)
		evaluations = append(evaluations, next)
		scoreBatch(evaluations)
	}

	return evaluations
}

// proposeBySurrogate fits a GP to the evaluations seen so far and returns
// the candidate, among a fresh random pool, with the highest expected
// improvement over the best score observed so far.
func proposeBySurrogate(evaluations []Evaluation, rng *rand.Rand) Candidate {
	x := make([][]float64, len(evaluations))
	y := make([]float64, len(evaluations))
	bestScore := 0.0
	for i, e := range evaluations {
		x[i] = normalizeCandidate(e.Candidate)
		y[i] = e.Score
		if e.Score > bestScore {
			bestScore = e.Score
		}
	}
	model := newGPModel(x, y)

	var bestCandidate Candidate
	bestEI := -1.0
	for i := 0; i < bayesianCandidatePoolSize; i++ {
		candidate := randomCandidate(rng)
		mean, stddev := model.predict(normalizeCandidate(candidate))
		ei := expectedImprovement(mean, stddev, bestScore)
		if ei > bestEI {
			bestEI = ei
			bestCandidate = candidate
		}
	}
	return bestCandidate
}

// normalizeCandidate maps a candidate's four genes into [0,1]^4 for the
// GP's RBF kernel.
func normalizeCandidate(c Candidate) []float64 {
	levels := float64(c.GridLevels-GridLevelsMin) / float64(GridLevelsMax-GridLevelsMin)
	spacing := (c.GridSpacing - SpacingMin) / (SpacingMax - SpacingMin)
	return []float64{
		levels,
		spacing,
		enumIndex(Timeframes, c.Timeframe) / float64(len(Timeframes)-1),
		enumIndex(RiskSizingModes, c.RiskSizing) / float64(len(RiskSizingModes)-1),
	}
}

func enumIndex[T comparable](values []T, v T) float64 {
	for i, candidate := range values {
		if candidate == v {
			return float64(i)
		}
	}
	return 0
}
