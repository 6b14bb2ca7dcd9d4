package data

import (
	"fmt"
	"time"

	"github.com/vantrade/gridbot/pkg/types"
)

// defaultSeriesFilter implements SeriesFilter with simple time-window
// trimming and a chronological-order check.
type defaultSeriesFilter struct{}

func newDefaultSeriesFilter() *defaultSeriesFilter {
	return &defaultSeriesFilter{}
}

// FilterByPeriod keeps only the trailing period of series, measured from
// its last candle's timestamp.
func (f *defaultSeriesFilter) FilterByPeriod(series []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(series) == 0 {
		return series
	}

	cutoff := series[len(series)-1].Timestamp.Add(-period)
	start := 0
	for i, candle := range series {
		if !candle.Timestamp.Before(cutoff) {
			start = i
			break
		}
	}
	return series[start:]
}

// ValidateTimeSequence fails if series is not in strictly increasing
// timestamp order: equal consecutive timestamps are rejected as
// duplicates, which is stricter than a non-decreasing order.
func (f *defaultSeriesFilter) ValidateTimeSequence(series []types.OHLCV) error {
	for i := 1; i < len(series); i++ {
		if series[i].Timestamp.Before(series[i-1].Timestamp) {
			return fmt.Errorf("candle %d: %s is out of order relative to %s",
				i, series[i].Timestamp.Format(time.RFC3339), series[i-1].Timestamp.Format(time.RFC3339))
		}
		if series[i].Timestamp.Equal(series[i-1].Timestamp) {
			return fmt.Errorf("candle %d: duplicate timestamp %s", i, series[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
