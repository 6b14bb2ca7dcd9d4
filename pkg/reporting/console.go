package reporting

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/optimize"
	"github.com/vantrade/gridbot/internal/storage"
)

// DefaultConsoleReporter prints backtest summaries, optimizer leaderboards,
// and strategy tables to stdout.
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a console reporter.
func NewDefaultConsoleReporter() *DefaultConsoleReporter { return &DefaultConsoleReporter{} }

// PrintBacktestSummary prints a backtest result's headline metrics,
// trimmed from the teacher's OutputResults to the fields spec.md names.
func (r *DefaultConsoleReporter) PrintBacktestSummary(pair string, result *backtest.Result) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("BACKTEST RESULTS: %s\n", pair)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total Return:    %.2f%%\n", result.TotalReturn*100)
	fmt.Printf("Sharpe Ratio:    %.2f\n", result.SharpeRatio)
	fmt.Printf("Max Drawdown:    %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("Trade Count:     %d\n", result.TradeCount)
	fmt.Printf("Win Rate:        %.1f%%\n", result.WinRate*100)
	fmt.Printf("Volatility:      %.2f\n", result.Volatility)
	fmt.Printf("Fees Paid:       $%.2f\n", result.FeesPaid)
}

// PrintLeaderboard renders the top-scoring non-degenerate candidates from
// an optimizer run as a table.
func (r *DefaultConsoleReporter) PrintLeaderboard(evaluations []optimize.Evaluation, top int) {
	ranked := make([]optimize.Evaluation, 0, len(evaluations))
	for _, e := range evaluations {
		if !e.Degenerate {
			ranked = append(ranked, e)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Rank", "Levels", "Spacing", "Timeframe", "Risk Sizing", "Return", "Sharpe", "Drawdown", "Trades", "Score"})
	for i, e := range ranked {
		t.AppendRow(table.Row{
			i + 1,
			e.Candidate.GridLevels,
			fmt.Sprintf("%.4f", e.Candidate.GridSpacing),
			e.Candidate.Timeframe,
			e.Candidate.RiskSizing,
			fmt.Sprintf("%.2f%%", e.TotalReturn*100),
			fmt.Sprintf("%.2f", e.SharpeRatio),
			fmt.Sprintf("%.2f%%", e.MaxDrawdown*100),
			e.TradeCount,
			fmt.Sprintf("%.4f", e.Score),
		})
	}
	t.Render()
}

// PrintStrategyTable renders every persisted strategy as a table, used by
// the CLI's `strategy list` verb.
func (r *DefaultConsoleReporter) PrintStrategyTable(strategies map[string]storage.StrategyFile) {
	ids := make([]string, 0, len(strategies))
	for id := range strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Pair", "Levels", "Spacing", "Capital", "Return", "Sharpe", "Drawdown", "Strategy"})
	for _, id := range ids {
		sf := strategies[id]
		t.AppendRow(table.Row{
			id,
			sf.TradingPair,
			sf.GridLevels,
			fmt.Sprintf("%.4f", sf.GridSpacing),
			fmt.Sprintf("$%.2f", sf.Capital),
			fmt.Sprintf("%.2f%%", sf.Performance.Return*100),
			fmt.Sprintf("%.2f", sf.Performance.Sharpe),
			fmt.Sprintf("%.2f%%", sf.Performance.Drawdown*100),
			sf.OptimizationMeta.Strategy,
		})
	}
	t.Render()
}
