package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vantrade/gridbot/internal/backtest"
)

// resultDocument is the JSON-exported shape of a BacktestResult, mirroring
// the fields named in spec.md section 4.4 plus the pair and export time for
// provenance.
type resultDocument struct {
	Pair        string                  `json:"pair"`
	ExportedAt  time.Time               `json:"exported_at"`
	TotalReturn float64                 `json:"total_return"`
	SharpeRatio float64                 `json:"sharpe_ratio"`
	MaxDrawdown float64                 `json:"max_drawdown"`
	TradeCount  int                     `json:"trade_count"`
	WinRate     float64                 `json:"win_rate"`
	Volatility  float64                 `json:"volatility"`
	FeesPaid    float64                 `json:"fees_paid"`
	EquityCurve []backtest.EquityPoint  `json:"equity_curve"`
}

// WriteResultJSON serializes a backtest Result to path as a standalone
// JSON report, for tooling that consumes backtest output directly rather
// than through internal/storage's strategy-file schema.
func (r *DefaultCSVReporter) WriteResultJSON(pair string, result *backtest.Result, path string) error {
	if err := (&DefaultPathManager{}).EnsureDirectoryExists(path); err != nil {
		return err
	}

	doc := resultDocument{
		Pair:        pair,
		ExportedAt:  time.Now(),
		TotalReturn: result.TotalReturn,
		SharpeRatio: result.SharpeRatio,
		MaxDrawdown: result.MaxDrawdown,
		TradeCount:  result.TradeCount,
		WinRate:     result.WinRate,
		Volatility:  result.Volatility,
		FeesPaid:    result.FeesPaid,
		EquityCurve: result.EquityCurve,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backtest result: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
