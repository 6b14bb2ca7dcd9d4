package reporting

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/storage"
)

// DefaultCSVReporter writes trade and equity-curve CSV exports, following
// the teacher's WriteTradesCSV shape (header row, one row per record, a
// trailing summary row), trimmed from DCA cycle columns to grid trade
// columns.
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a CSV reporter.
func NewDefaultCSVReporter() *DefaultCSVReporter { return &DefaultCSVReporter{} }

// WriteTradesCSV writes two sections to path: every trade, then every
// equity-curve sample.
func (r *DefaultCSVReporter) WriteTradesCSV(trades []storage.TradeRecord, equity []backtest.EquityPoint, path string) error {
	if err := (&DefaultPathManager{}).EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"section", "timestamp", "pair", "side", "price", "quantity", "fee", "equity", "exposure"}); err != nil {
		return err
	}

	var totalFees float64
	for _, t := range trades {
		totalFees += t.Fee
		if err := w.Write([]string{
			"trade", t.Timestamp.Format("2006-01-02T15:04:05Z07:00"), t.Pair, t.Side,
			fmt.Sprintf("%.8f", t.Price), fmt.Sprintf("%.8f", t.Quantity), fmt.Sprintf("%.8f", t.Fee), "", "",
		}); err != nil {
			return err
		}
	}

	for _, e := range equity {
		if err := w.Write([]string{
			"equity", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), "", "", "", "", "",
			fmt.Sprintf("%.2f", e.Equity), fmt.Sprintf("%.4f", e.Exposure),
		}); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("trade_count=%d; total_fees=%.2f", len(trades), totalFees)
	return w.Write([]string{"summary", "", "", "", "", "", "", "", summary})
}
