package optimize

import "math"

// gpModel is a from-scratch Gaussian-process regressor with an RBF kernel,
// used by Bayesian search's surrogate model. No repo in the retrieval pack
// implements a GP and none is a reasonable ecosystem default for a model
// this small, so it is hand-written against the standard library only
// (see DESIGN.md).
type gpModel struct {
	X           [][]float64
	y           []float64
	lengthScale float64
	signalVar   float64
	noiseVar    float64
	invK        [][]float64
}

// newGPModel fits a GP to the given normalized training inputs and
// targets using fixed RBF hyperparameters.
func newGPModel(x [][]float64, y []float64) *gpModel {
	m := &gpModel{
		X:           x,
		y:           y,
		lengthScale: 0.3,
		signalVar:   1.0,
		noiseVar:    1e-4,
	}
	n := len(x)
	k := make([][]float64, n)
	for i := range k {
		k[i] = make([]float64, n)
		for j := range k[i] {
			k[i][j] = m.kernel(x[i], x[j])
			if i == j {
				k[i][j] += m.noiseVar
			}
		}
	}
	m.invK = invertMatrix(k)
	return m
}

func (m *gpModel) kernel(a, b []float64) float64 {
	sumSq := 0.0
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return m.signalVar * math.Exp(-sumSq/(2*m.lengthScale*m.lengthScale))
}

// predict returns the posterior mean and standard deviation at x.
func (m *gpModel) predict(x []float64) (mean, stddev float64) {
	n := len(m.X)
	kStar := make([]float64, n)
	for i := range kStar {
		kStar[i] = m.kernel(x, m.X[i])
	}

	alpha := matVec(m.invK, m.y)
	for i := range kStar {
		mean += kStar[i] * alpha[i]
	}

	kInvKStar := matVec(m.invK, kStar)
	variance := m.signalVar
	for i := range kStar {
		variance -= kStar[i] * kInvKStar[i]
	}
	if variance < 1e-12 {
		variance = 1e-12
	}
	return mean, math.Sqrt(variance)
}

// expectedImprovement computes the expected-improvement acquisition value
// at a point whose surrogate posterior is (mean, stddev), relative to the
// best objective value observed so far.
func expectedImprovement(mean, stddev, best float64) float64 {
	if stddev <= 1e-12 {
		return 0
	}
	z := (mean - best) / stddev
	return (mean-best)*normalCDF(z) + stddev*normalPDF(z)
}

func normalPDF(z float64) float64 {
	return math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// matVec multiplies an n x n matrix by an n-vector.
func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range m {
		sum := 0.0
		for j := range v {
			sum += m[i][j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// invertMatrix inverts a square matrix via Gauss-Jordan elimination with
// partial pivoting. Training-set sizes for the Bayesian search stay small
// (tens of points), so this O(n^3) approach is adequate.
func invertMatrix(m [][]float64) [][]float64 {
	n := len(m)
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		pivotVal := aug[col][col]
		if math.Abs(pivotVal) < 1e-12 {
			pivotVal = 1e-12
		}
		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pivotVal
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			for j := 0; j < 2*n; j++ {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}
	return inv
}
