package regime

import (
	"errors"
	"time"
)

// ErrInsufficientData is returned when the classifier is fed an empty
// price window.
var ErrInsufficientData = errors.New("insufficient data: empty price window")

// Detector classifies a rolling window of recent prices into a market
// state and maintains a 3x3 transition-count matrix used to score the
// confidence of each new classification.
type Detector struct {
	cfg *RegimeConfig

	transitions [3][3]int // [previous][current] classification counts
	lastState   RegimeType
	hasLast     bool

	bus *RegimeEventBus
}

// NewDetector creates a classifier with the given configuration. A nil
// config applies the spec defaults (10/50 bar SMAs, tau=0.005).
func NewDetector(cfg *RegimeConfig) *Detector {
	if cfg == nil {
		cfg = DefaultRegimeConfig()
	}
	return &Detector{
		cfg:       cfg,
		lastState: RegimeRanging,
		bus:       NewRegimeEventBus(),
	}
}

// EventBus exposes the detector's regime-change publisher.
func (d *Detector) EventBus() *RegimeEventBus {
	return d.bus
}

// Classify computes (MarketState, confidence) from a rolling window of
// prices, oldest first. Fewer than LongWindow samples yields Ranging with
// confidence 0; an empty window is ErrInsufficientData.
func (d *Detector) Classify(prices []float64) (RegimeType, float64, error) {
	if len(prices) == 0 {
		return RegimeRanging, 0, ErrInsufficientData
	}
	if len(prices) < d.cfg.LongWindow {
		return RegimeRanging, 0, nil
	}

	short, okShort := SimpleMovingAverage(prices, d.cfg.ShortWindow)
	long, okLong := SimpleMovingAverage(prices, d.cfg.LongWindow)
	if !okShort || !okLong || !isFiniteAndPositive(long) {
		return RegimeRanging, 0, nil
	}

	state := classify(short, long, d.cfg.TrendThreshold)
	confidence := d.recordAndScore(state)
	return state, confidence, nil
}

// classify applies the moving-average crossing rule.
func classify(short, long, threshold float64) RegimeType {
	switch {
	case short > long*(1+threshold):
		return RegimeTrendingUp
	case short < long*(1-threshold):
		return RegimeTrendingDown
	default:
		return RegimeRanging
	}
}

// recordAndScore feeds the new classification into the transition-count
// matrix and returns the normalized probability of `state` given the
// previously classified state.
func (d *Detector) recordAndScore(state RegimeType) float64 {
	if !d.hasLast {
		d.hasLast = true
		d.lastState = state
		d.transitions[state][state]++
		return 1.0 / 3.0
	}

	prev := d.lastState
	d.transitions[prev][state]++

	total := 0
	for _, count := range d.transitions[prev] {
		total += count
	}
	confidence := 0.0
	if total > 0 {
		confidence = float64(d.transitions[prev][state]) / float64(total)
	}

	d.lastState = state
	return confidence
}

// Update classifies the window and, if the state changed since the prior
// call, publishes a RegimeChange to subscribers. Returns the classification
// regardless of whether a change was published.
func (d *Detector) Update(pair string, prices []float64, lastPrice float64, now time.Time) (RegimeType, float64, error) {
	previous := d.lastState
	state, confidence, err := d.Classify(prices)
	if err != nil {
		return state, confidence, err
	}
	if state != previous {
		d.bus.PublishRegimeChange(&RegimeChange{
			Timestamp:    now,
			OldRegime:    previous,
			NewRegime:    state,
			Confidence:   confidence,
			TriggerPrice: lastPrice,
		})
	}
	return state, confidence, nil
}

// CurrentState returns the most recently classified state.
func (d *Detector) CurrentState() RegimeType {
	return d.lastState
}
