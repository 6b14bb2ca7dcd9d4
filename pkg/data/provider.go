package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/vantrade/gridbot/pkg/types"
)

// Manager combines loading, caching, filtering, and file-locating into the
// one entry point the CLI and Backtest Driver use to obtain a price series.
type Manager struct {
	source  SeriesSource
	filter  SeriesFilter
	locator SeriesLocator
}

// NewManager creates a data manager backed by a cached CSV source.
func NewManager() *Manager {
	return &Manager{
		source:  NewCachedSeriesSource(NewCSVSeriesSource()),
		filter:  newDefaultSeriesFilter(),
		locator: newDefaultSeriesLocator(),
	}
}

// NewManagerWithSource creates a data manager over a custom source, e.g.
// for tests that supply canned series without touching disk.
func NewManagerWithSource(source SeriesSource) *Manager {
	return &Manager{
		source:  source,
		filter:  newDefaultSeriesFilter(),
		locator: newDefaultSeriesLocator(),
	}
}

// LoadSeries loads and validates an OHLCV series from filename.
func (m *Manager) LoadSeries(filename string) ([]types.OHLCV, error) {
	series, err := m.source.Load(filename)
	if err != nil {
		return nil, err
	}
	if err := m.source.Validate(series); err != nil {
		return nil, err
	}
	return series, nil
}

// FilterByPeriod trims series to its trailing period duration.
func (m *Manager) FilterByPeriod(series []types.OHLCV, period time.Duration) []types.OHLCV {
	return m.filter.FilterByPeriod(series, period)
}

// FindDataFile locates a data file for an exchange/symbol/interval under
// dataRoot, used when the CLI is given a pair but no explicit --data path.
func (m *Manager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return m.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "168h" into a
// duration.
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	return 0, false
}
