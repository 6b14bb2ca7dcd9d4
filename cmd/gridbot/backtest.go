package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/data"
	"github.com/vantrade/gridbot/pkg/reporting"
)

// runBacktest dispatches "backtest demo" (a single run against generated
// sample data, for a quick sanity check) and "backtest run" (a run
// against a real data file for a saved GridConfig).
func runBacktest(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "backtest: expected a subcommand, \"demo\" or \"run\"")
		return exitUsageError
	}

	switch args[0] {
	case "demo":
		return backtestDemo(args[1:])
	case "run":
		return backtestRun(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "backtest: unknown subcommand %q\n", args[0])
		return exitUsageError
	}
}

func backtestDemo(args []string) int {
	fs := flag.NewFlagSet("backtest demo", flag.ContinueOnError)
	pair := fs.String("pair", "BTCUSDT", "trading pair")
	basePrice := fs.Float64("base-price", 50000, "grid center price")
	levels := fs.Int("levels", 10, "grid levels per side")
	spacing := fs.Float64("spacing", 0.01, "grid spacing as a fraction of base price")
	capital := fs.Float64("capital", 10000, "starting capital")
	seed := fs.Int64("seed", 1, "simulator random seed")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}

	cfg := config.NewGridConfig(*pair, *basePrice, *levels, *spacing, *capital)
	// A nonexistent path makes the CSV series source fall back to a
	// synthesized demo series, giving "backtest demo" a runnable default.
	return runBacktestFor(cfg, "gridbot-demo-series.csv", *seed, nil)
}

func backtestRun(args []string) int {
	fs := flag.NewFlagSet("backtest run", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to a GridConfig JSON file (required)")
	dataFile := fs.String("data", "", "path to historical OHLCV data (auto-detected under --data-root if omitted)")
	dataRoot := fs.String("data-root", config.DefaultDataRoot, "root directory to search for data when --data is omitted")
	output := fs.String("output", "", "directory to write CSV/XLSX/JSON reports (skipped if empty)")
	seed := fs.Int64("seed", 1, "simulator random seed")
	withRisk := fs.Bool("with-risk", false, "gate signals through a single-pair Portfolio Risk Controller")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "backtest run: --config is required")
		return exitUsageError
	}

	mgr := config.NewGridConfigManager()
	cfg, err := mgr.Load(*configFile, config.GridConfig{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest run: %v\n", err)
		return exitPreflightFailure
	}

	resolvedData := *dataFile
	if resolvedData == "" {
		resolvedData = cfg.DataFile
	}
	if resolvedData == "" {
		loc := data.NewManager()
		resolvedData = loc.FindDataFile(*dataRoot, config.DefaultExchange, cfg.Pair, string(cfg.Timeframe))
	}

	var riskCtrl *portfolio.Controller
	if *withRisk {
		riskCtrl = portfolio.New(portfolio.DefaultConfig(), cfg.Capital)
	}

	return runBacktestFor(cfg, resolvedData, *seed, riskOrNil(riskCtrl, *output))
}

func riskOrNil(c *portfolio.Controller, output string) *backtestOpts {
	return &backtestOpts{risk: c, output: output}
}

type backtestOpts struct {
	risk   *portfolio.Controller
	output string
}

func runBacktestFor(cfg *config.GridConfig, dataFile string, seed int64, opts *backtestOpts) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: config invalid: %v\n", err)
		return exitPreflightFailure
	}

	mgr := data.NewManager()
	series, err := mgr.LoadSeries(dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return exitGenericError
	}
	if len(series) == 0 {
		fmt.Fprintln(os.Stderr, "backtest: data series is empty")
		return exitPreflightFailure
	}

	var riskCtrl *portfolio.Controller
	outputDir := ""
	if opts != nil {
		riskCtrl = opts.risk
		outputDir = opts.output
	}

	driver, err := backtest.NewDriver(cfg, backtest.DefaultCostModel(seed), riskCtrl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return exitGenericError
	}

	result, err := driver.Run(series)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return exitGenericError
	}

	console := reporting.NewDefaultConsoleReporter()
	console.PrintBacktestSummary(cfg.Pair, result)

	if outputDir != "" {
		paths := reporting.NewDefaultPathManager()
		if err := paths.EnsureDirectoryExists(outputDir); err != nil {
			fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
			return exitGenericError
		}
		files := reporting.NewDefaultCSVReporter()
		if err := files.WriteResultJSON(cfg.Pair, result, filepath.Join(outputDir, cfg.Pair+"_result.json")); err != nil {
			fmt.Fprintf(os.Stderr, "backtest: write json: %v\n", err)
			return exitGenericError
		}
		if err := files.WriteTradesXLSX(cfg.Pair, nil, result, filepath.Join(outputDir, cfg.Pair+"_report.xlsx")); err != nil {
			fmt.Fprintf(os.Stderr, "backtest: write xlsx: %v\n", err)
			return exitGenericError
		}
	}

	return exitSuccess
}
