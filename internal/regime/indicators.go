package regime

import "math"

// SimpleMovingAverage computes the arithmetic mean of the last `window`
// values in prices. Returns 0 and false if prices has fewer than window
// elements.
func SimpleMovingAverage(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	start := len(prices) - window
	sum := 0.0
	for _, p := range prices[start:] {
		sum += p
	}
	return sum / float64(window), true
}

// isFiniteAndPositive guards against NaN/zero inputs from a flat or
// malformed feed, so the classifier degrades to Ranging rather than
// dividing by zero or propagating NaN.
func isFiniteAndPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
