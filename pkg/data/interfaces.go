package data

import (
	"time"

	"github.com/vantrade/gridbot/pkg/types"
)

// SeriesSource loads an OHLCV price series the Backtest Driver and
// Parameter Optimizer replay, from some source identified by an opaque
// string (a file path for the CSV source below).
type SeriesSource interface {
	// Load reads a series from source.
	Load(source string) ([]types.OHLCV, error)

	// Validate checks a loaded series for the invariants the Backtest
	// Driver assumes: positive, internally consistent candles in
	// chronological order.
	Validate(series []types.OHLCV) error

	// Name identifies the source for logging.
	Name() string
}

// SeriesCache memoizes a SeriesSource's output by source key.
type SeriesCache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, series []types.OHLCV)
}

// SeriesFilter trims or validates a loaded series before it reaches the
// Backtest Driver.
type SeriesFilter interface {
	// FilterByPeriod keeps only the trailing period of series.
	FilterByPeriod(series []types.OHLCV, period time.Duration) []types.OHLCV

	// ValidateTimeSequence fails if series is not strictly chronological.
	ValidateTimeSequence(series []types.OHLCV) error
}

// SeriesLocator finds a historical data file for a pair on disk.
type SeriesLocator interface {
	FindDataFile(dataRoot, exchange, symbol, interval string) string
	ConvertIntervalToMinutes(interval string) string
}

// CSVColumnMapping describes which columns of a CSV file hold the
// timestamp and OHLCV fields, and how the timestamp is formatted.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat is the column layout used by every exchange's exported
// candle CSVs in this module's data/ directory convention: timestamp,
// open, high, low, close, volume.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}
