package reporting

import (
	"fmt"

	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/xuri/excelize/v2"
)

const (
	tradesSheet  = "Trades"
	equitySheet  = "Equity Curve"
	summarySheet = "Summary"
)

// WriteTradesXLSX writes a workbook with a Trades sheet, an Equity Curve
// sheet, and a Summary sheet of headline metrics, following the teacher's
// excel.go header-row-plus-bold-style convention, trimmed to grid-trade
// columns.
func (r *DefaultCSVReporter) WriteTradesXLSX(pair string, trades []storage.TradeRecord, result *backtest.Result, path string) error {
	if err := (&DefaultPathManager{}).EnsureDirectoryExists(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), summarySheet)
	if err := writeSummarySheet(f, pair, result); err != nil {
		return err
	}

	if _, err := f.NewSheet(tradesSheet); err != nil {
		return fmt.Errorf("create trades sheet: %w", err)
	}
	if err := writeTradesSheet(f, trades); err != nil {
		return err
	}

	if _, err := f.NewSheet(equitySheet); err != nil {
		return fmt.Errorf("create equity sheet: %w", err)
	}
	if err := writeEquitySheet(f, result.EquityCurve); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
}

func writeSummarySheet(f *excelize.File, pair string, result *backtest.Result) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Pair", pair},
		{"Total Return", result.TotalReturn},
		{"Sharpe Ratio", result.SharpeRatio},
		{"Max Drawdown", result.MaxDrawdown},
		{"Trade Count", result.TradeCount},
		{"Win Rate", result.WinRate},
		{"Volatility", result.Volatility},
		{"Fees Paid", result.FeesPaid},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", style); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 18)
}

func writeTradesSheet(f *excelize.File, trades []storage.TradeRecord) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	header := []interface{}{"Timestamp", "Pair", "Side", "Price", "Quantity", "Fee"}
	if err := f.SetSheetRow(tradesSheet, "A1", &header); err != nil {
		return err
	}
	for i, t := range trades {
		row := []interface{}{
			t.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			t.Pair,
			t.Side,
			t.Price,
			t.Quantity,
			t.Fee,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(tradesSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(tradesSheet, "A1", "F1", style); err != nil {
		return err
	}
	return f.SetColWidth(tradesSheet, "A", "F", 16)
}

func writeEquitySheet(f *excelize.File, curve []backtest.EquityPoint) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	header := []interface{}{"Timestamp", "Equity", "Exposure"}
	if err := f.SetSheetRow(equitySheet, "A1", &header); err != nil {
		return err
	}
	for i, e := range curve {
		row := []interface{}{
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			e.Equity,
			e.Exposure,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(equitySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(equitySheet, "A1", "C1", style); err != nil {
		return err
	}
	return f.SetColWidth(equitySheet, "A", "C", 16)
}
