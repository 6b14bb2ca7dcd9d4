package optimize

// scoreBatch computes each evaluation's composite score relative to the
// batch it was evaluated in:
//
//	score = 0.4*norm(return) + 0.3*norm(sharpe) + 0.2*norm(-drawdown) + 0.1*norm(trade_freq)
//
// norm min-max normalizes a metric into [0,1] across the non-degenerate
// members of the batch. Degenerate candidates always score 0 and are
// excluded from the min-max range so they cannot compress it.
func scoreBatch(evaluations []Evaluation) {
	var returns, sharpes, negDrawdowns, freqs []float64
	for _, e := range evaluations {
		if e.Degenerate {
			continue
		}
		returns = append(returns, e.TotalReturn)
		sharpes = append(sharpes, e.SharpeRatio)
		negDrawdowns = append(negDrawdowns, -e.MaxDrawdown)
		freqs = append(freqs, float64(e.TradeCount))
	}

	returnRange := minMax(returns)
	sharpeRange := minMax(sharpes)
	drawdownRange := minMax(negDrawdowns)
	freqRange := minMax(freqs)

	for i := range evaluations {
		e := &evaluations[i]
		if e.Degenerate {
			e.Score = 0
			continue
		}
		e.Score = 0.4*returnRange.norm(e.TotalReturn) +
			0.3*sharpeRange.norm(e.SharpeRatio) +
			0.2*drawdownRange.norm(-e.MaxDrawdown) +
			0.1*freqRange.norm(float64(e.TradeCount))
	}
}

type batchRange struct {
	min, max float64
	valid    bool
}

func minMax(values []float64) batchRange {
	if len(values) == 0 {
		return batchRange{}
	}
	r := batchRange{min: values[0], max: values[0], valid: true}
	for _, v := range values[1:] {
		if v < r.min {
			r.min = v
		}
		if v > r.max {
			r.max = v
		}
	}
	return r
}

// norm maps v into [0,1] via this range's min-max span. A degenerate
// (empty or single-valued) range normalizes every value to 0.5: there is
// no differentiating information to reward or penalize.
func (r batchRange) norm(v float64) float64 {
	if !r.valid || r.max == r.min {
		return 0.5
	}
	return (v - r.min) / (r.max - r.min)
}

// Best returns the highest-scoring non-degenerate evaluation, or false if
// every candidate in the batch was degenerate, per spec.md's rule that
// degenerate candidates are retained for diversity but excluded from the
// reported optimum.
func Best(evaluations []Evaluation) (Evaluation, bool) {
	var top Evaluation
	found := false
	for _, e := range evaluations {
		if e.Degenerate {
			continue
		}
		if !found || e.Score > top.Score {
			top = e
			found = true
		}
	}
	return top, found
}
