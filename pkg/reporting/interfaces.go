// Package reporting provides the out-of-scope report generators' reference
// implementation: console summaries and leaderboards, and CSV/Excel/JSON
// export of backtest trades and equity curves. Grounded on the teacher's
// pkg/reporting package split (console/csv/excel/json/paths, combined
// behind a Reporter interface), trimmed from DCA-cycle reporting to grid
// trades and equity-curve rows.
package reporting

import (
	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/optimize"
	"github.com/vantrade/gridbot/internal/storage"
)

// ConsoleReporter prints human-readable summaries to stdout.
type ConsoleReporter interface {
	PrintBacktestSummary(pair string, result *backtest.Result)
	PrintLeaderboard(evaluations []optimize.Evaluation, top int)
	PrintStrategyTable(strategies map[string]storage.StrategyFile)
}

// FileReporter exports backtest results to disk.
type FileReporter interface {
	WriteTradesCSV(trades []storage.TradeRecord, equity []backtest.EquityPoint, path string) error
	WriteTradesXLSX(pair string, trades []storage.TradeRecord, result *backtest.Result, path string) error
	WriteResultJSON(pair string, result *backtest.Result, path string) error
}

// PathManager resolves and prepares output paths.
type PathManager interface {
	DefaultOutputDir(pair string, timeframe string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines every reporting concern behind one interface, the way
// the teacher's cmd/*/main.go constructs a single Reporter and calls
// through it regardless of output format.
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}
