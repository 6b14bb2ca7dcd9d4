package simulator

import (
	"math"
	"math/rand"
)

// SlippageKind selects the slippage function applied to a fill's notional.
type SlippageKind int

const (
	// SlippageFixed applies a constant basis-point haircut regardless of
	// size.
	SlippageFixed SlippageKind = iota
	// SlippageSquareRoot models slippage as k*sqrt(notional), the classic
	// square-root market-impact approximation.
	SlippageSquareRoot
	// SlippageLinear models slippage as k*notional.
	SlippageLinear
	// SlippageRealistic derives slippage from the per-level book walk
	// (the natural consequence of consuming multiple levels) plus a small
	// noise term scaled by MarketImpact.
	SlippageRealistic
)

// SlippageModel is a configured slippage function. MarketImpact is an
// explicit field of the model (never an implicit scalar) per the open
// question on market-impact scaling: it is the coefficient the Realistic
// variant uses to scale its per-level-walk-derived slippage plus noise.
type SlippageModel struct {
	Kind SlippageKind

	// FixedBps is used when Kind == SlippageFixed: slippage = notional *
	// FixedBps / 10000.
	FixedBps float64

	// Coefficient is `k` for SquareRoot (k*sqrt(notional)) and Linear
	// (k*notional).
	Coefficient float64

	// MarketImpact scales the Realistic variant's walk-derived slippage
	// and its noise term. It is never folded implicitly into Coefficient.
	MarketImpact float64
}

// DefaultSlippageModel returns a Realistic model with conservative
// defaults, used when a caller does not configure one explicitly.
func DefaultSlippageModel() SlippageModel {
	return SlippageModel{
		Kind:         SlippageRealistic,
		MarketImpact: 0.1,
	}
}

// compute returns the slippage amount (in quote currency) for a fill of
// the given notional that walked the book from bestPrice to worstPrice.
// rng is consulted only for the Realistic variant's noise term, so every
// other variant is a pure function of its inputs.
func (m SlippageModel) compute(notional, bestPrice, worstPrice float64, rng *rand.Rand) float64 {
	switch m.Kind {
	case SlippageFixed:
		return notional * m.FixedBps / 10000.0
	case SlippageSquareRoot:
		return m.Coefficient * math.Sqrt(math.Abs(notional))
	case SlippageLinear:
		return m.Coefficient * math.Abs(notional)
	case SlippageRealistic:
		walkSlippage := math.Abs(worstPrice-bestPrice) / bestPriceOrOne(bestPrice) * notional
		noise := 0.0
		if rng != nil {
			noise = (rng.Float64()*2 - 1) * m.MarketImpact * 0.001 * notional
		}
		impact := m.MarketImpact * walkSlippage
		total := walkSlippage + impact + noise
		if total < 0 {
			total = walkSlippage
		}
		return total
	default:
		return 0
	}
}

func bestPriceOrOne(p float64) float64 {
	if p == 0 {
		return 1
	}
	return p
}
