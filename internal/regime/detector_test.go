package regime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantrade/gridbot/internal/regime"
)

func flatSeries(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestClassify_EmptyWindowIsInsufficientData(t *testing.T) {
	d := regime.NewDetector(nil)
	state, confidence, err := d.Classify(nil)
	require.ErrorIs(t, err, regime.ErrInsufficientData)
	assert.Equal(t, regime.RegimeRanging, state)
	assert.Zero(t, confidence)
}

func TestClassify_FewerThanLongWindowIsRangingZeroConfidence(t *testing.T) {
	d := regime.NewDetector(nil)
	state, confidence, err := d.Classify(flatSeries(49, 100))
	require.NoError(t, err)
	assert.Equal(t, regime.RegimeRanging, state)
	assert.Zero(t, confidence)
}

// A flat price series never panics and always classifies as Ranging.
func TestClassify_FlatSeriesIsRangingNeverPanics(t *testing.T) {
	d := regime.NewDetector(nil)
	state, _, err := d.Classify(flatSeries(60, 100))
	require.NoError(t, err)
	assert.Equal(t, regime.RegimeRanging, state)
}

func TestClassify_ZeroPricesAreTreatedAsRanging(t *testing.T) {
	d := regime.NewDetector(nil)
	assert.NotPanics(t, func() {
		state, _, err := d.Classify(flatSeries(60, 0))
		require.NoError(t, err)
		assert.Equal(t, regime.RegimeRanging, state)
	})
}

// A steadily rising series pushes the short SMA above the long SMA by
// more than tau, classifying as TrendingUp.
func TestClassify_RisingSeriesIsTrendingUp(t *testing.T) {
	d := regime.NewDetector(nil)
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}
	state, confidence, err := d.Classify(prices)
	require.NoError(t, err)
	assert.Equal(t, regime.RegimeTrendingUp, state)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

// A steadily falling series classifies as TrendingDown.
func TestClassify_FallingSeriesIsTrendingDown(t *testing.T) {
	d := regime.NewDetector(nil)
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 150 - float64(i)*0.5
	}
	state, _, err := d.Classify(prices)
	require.NoError(t, err)
	assert.Equal(t, regime.RegimeTrendingDown, state)
}

// Confidence is the normalized probability of the current state given the
// previous state, derived from the running 3x3 transition matrix: feeding
// the same trend repeatedly must drive confidence toward 1.
func TestClassify_RepeatedStateRaisesConfidence(t *testing.T) {
	d := regime.NewDetector(nil)
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}

	_, first, err := d.Classify(prices)
	require.NoError(t, err)

	var last float64
	for i := 0; i < 10; i++ {
		prices = append(prices, prices[len(prices)-1]+0.5)
		_, last, err = d.Classify(prices)
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, last, first)
	assert.LessOrEqual(t, last, 1.0)
}

// Update's return values track the underlying classification regardless of
// whether a change was published.
func TestUpdate_ReturnsCurrentClassification(t *testing.T) {
	d := regime.NewDetector(nil)
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)*0.5
	}
	state, _, err := d.Update("BTCUSDT", rising, rising[len(rising)-1], time.Now())
	require.NoError(t, err)
	assert.Equal(t, regime.RegimeTrendingUp, state)
	assert.Equal(t, regime.RegimeTrendingUp, d.CurrentState())
}

// The event bus fans a published change out to every subscriber exactly
// once, asynchronously.
func TestRegimeEventBus_PublishNotifiesSubscribers(t *testing.T) {
	bus := regime.NewRegimeEventBus()
	received := make(chan *regime.RegimeChange, 1)
	bus.Subscribe("watcher", changeCaptorFunc(received))

	change := &regime.RegimeChange{
		Timestamp:    time.Now(),
		OldRegime:    regime.RegimeRanging,
		NewRegime:    regime.RegimeTrendingUp,
		Confidence:   0.8,
		TriggerPrice: 101.5,
	}
	bus.PublishRegimeChange(change)

	select {
	case got := <-received:
		assert.Equal(t, change, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber notification")
	}
}

// Unsubscribe stops further delivery to that id.
func TestRegimeEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := regime.NewRegimeEventBus()
	received := make(chan *regime.RegimeChange, 1)
	bus.Subscribe("watcher", changeCaptorFunc(received))
	bus.Unsubscribe("watcher")

	bus.PublishRegimeChange(&regime.RegimeChange{NewRegime: regime.RegimeTrendingDown})

	select {
	case <-received:
		t.Fatal("unsubscribed watcher must not receive further notifications")
	case <-time.After(100 * time.Millisecond):
	}
}

type changeCaptor struct {
	ch chan *regime.RegimeChange
}

func (c changeCaptor) OnRegimeChange(change *regime.RegimeChange) error {
	c.ch <- change
	return nil
}

func changeCaptorFunc(ch chan *regime.RegimeChange) regime.RegimeCallback {
	return changeCaptor{ch: ch}
}
