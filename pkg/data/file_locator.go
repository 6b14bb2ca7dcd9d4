package data

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultSeriesLocator finds a historical candle file under a data root
// laid out as {root}/{exchange}/spot/{symbol}/{interval-in-minutes}/candles.csv.
// Only the spot category is searched: this module never trades margin or
// futures instruments (spec.md's Non-goals), so those categories have no
// corresponding data to find.
type defaultSeriesLocator struct{}

func newDefaultSeriesLocator() *defaultSeriesLocator {
	return &defaultSeriesLocator{}
}

// ConvertIntervalToMinutes converts interval strings like "5m", "1h", "4h",
// "1d" to a minute count used in the data directory layout. Values already
// numeric, or with an unrecognized unit, pass through unchanged.
func (f *defaultSeriesLocator) ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// FindDataFile returns the path to a pair's candle file under dataRoot, or
// "" if none is found.
func (f *defaultSeriesLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	intervalMinutes := f.ConvertIntervalToMinutes(interval)

	path := filepath.Join(dataRoot, strings.ToLower(exchange), "spot", symbol, intervalMinutes, "candles.csv")
	if _, err := os.Stat(path); err == nil {
		return path
	}

	log.Printf("data: no candle file for %s %s %s at %s", exchange, symbol, interval, path)
	return ""
}
