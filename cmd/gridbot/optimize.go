package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vantrade/gridbot/internal/backtest"
	"github.com/vantrade/gridbot/internal/optimize"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/data"
	"github.com/vantrade/gridbot/pkg/reporting"
)

// runOptimize dispatches "optimize pair" (one search strategy against one
// pair's data) and "optimize all" (every search strategy, reporting the
// single best candidate across all of them).
func runOptimize(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "optimize: expected a subcommand, \"all\" or \"pair\"")
		return exitUsageError
	}
	switch args[0] {
	case "pair":
		return optimizePair(args[1:])
	case "all":
		return optimizeAll(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "optimize: unknown subcommand %q\n", args[0])
		return exitUsageError
	}
}

type optimizeFlags struct {
	fs        *flag.FlagSet
	pair      *string
	basePrice *float64
	capital   *float64
	dataFile  *string
	dataRoot  *string
	strategy  *string
	seed      *int64
	iter      *int
	workers   *int
	save      *string
}

func newOptimizeFlags(name string) *optimizeFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &optimizeFlags{
		fs:        fs,
		pair:      fs.String("pair", "", "trading pair (required)"),
		basePrice: fs.Float64("base-price", 0, "grid center price for evaluated candidates (required)"),
		capital:   fs.Float64("capital", 10000, "capital used by every evaluated candidate"),
		dataFile:  fs.String("data", "", "path to historical OHLCV data (auto-detected under --data-root if omitted)"),
		dataRoot:  fs.String("data-root", config.DefaultDataRoot, "root directory to search for data when --data is omitted"),
		strategy:  fs.String("strategy", "genetic", "search strategy: grid|random|genetic|bayesian"),
		seed:      fs.Int64("seed", 1, "random seed for the search and the cost model"),
		iter:      fs.Int("iterations", 200, "candidate count for random/bayesian search"),
		workers:   fs.Int("workers", 0, "worker pool size (0 = CPU count)"),
		save:      fs.String("save", "", "strategy storage directory to persist the winning candidate into"),
	}
}

func (f *optimizeFlags) validate() error {
	if *f.pair == "" {
		return fmt.Errorf("--pair is required")
	}
	if *f.basePrice <= 0 {
		return fmt.Errorf("--base-price is required")
	}
	return nil
}

func (f *optimizeFlags) evalContext() (optimize.EvalContext, error) {
	resolved := *f.dataFile
	if resolved == "" {
		loc := data.NewManager()
		resolved = loc.FindDataFile(*f.dataRoot, config.DefaultExchange, *f.pair, "5m")
	}
	mgr := data.NewManager()
	series, err := mgr.LoadSeries(resolved)
	if err != nil {
		return optimize.EvalContext{}, err
	}
	return optimize.EvalContext{
		Pair:      *f.pair,
		BasePrice: *f.basePrice,
		Capital:   *f.capital,
		Series:    series,
		Cost:      backtest.DefaultCostModel(*f.seed),
	}, nil
}

func runStrategySearch(name string, ctx optimize.EvalContext, f *optimizeFlags) []optimize.Evaluation {
	switch name {
	case "grid":
		return optimize.RunGrid(ctx, optimize.DefaultGridSteps(), *f.workers)
	case "random":
		return optimize.RunRandom(ctx, *f.iter, *f.seed, *f.workers)
	case "bayesian":
		return optimize.RunBayesian(ctx, *f.iter, *f.seed, *f.workers)
	default:
		return optimize.RunGenetic(ctx, optimize.DefaultGeneticConfig(*f.seed), *f.workers)
	}
}

func optimizePair(args []string) int {
	f := newOptimizeFlags("optimize pair")
	if err := f.fs.Parse(args); err != nil {
		return exitUsageError
	}
	if err := f.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "optimize pair: %v\n", err)
		return exitUsageError
	}

	ctx, err := f.evalContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "optimize pair: %v\n", err)
		return exitGenericError
	}

	evaluations := runStrategySearch(*f.strategy, ctx, f)
	best, ok := optimize.Best(evaluations)
	if !ok {
		fmt.Fprintln(os.Stderr, "optimize pair: every candidate was degenerate, no optimum to report")
		return exitGenericError
	}

	console := reporting.NewDefaultConsoleReporter()
	console.PrintLeaderboard(evaluations, 10)

	if *f.save != "" {
		if err := saveWinner(*f.save, *f.strategy, ctx, best); err != nil {
			fmt.Fprintf(os.Stderr, "optimize pair: %v\n", err)
			return exitGenericError
		}
	}
	return exitSuccess
}

// optimizeAll runs every search strategy against the same data and
// reports the single best candidate across all of them, the default path
// an operator uses before committing capital to a pair.
func optimizeAll(args []string) int {
	f := newOptimizeFlags("optimize all")
	if err := f.fs.Parse(args); err != nil {
		return exitUsageError
	}
	if err := f.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "optimize all: %v\n", err)
		return exitUsageError
	}

	ctx, err := f.evalContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "optimize all: %v\n", err)
		return exitGenericError
	}

	var all []optimize.Evaluation
	var bestStrategy string
	var overallBest optimize.Evaluation
	haveBest := false

	for _, strategy := range []string{"grid", "random", "genetic", "bayesian"} {
		evaluations := runStrategySearch(strategy, ctx, f)
		all = append(all, evaluations...)
		if best, ok := optimize.Best(evaluations); ok && (!haveBest || best.Score > overallBest.Score) {
			overallBest = best
			bestStrategy = strategy
			haveBest = true
		}
	}

	if !haveBest {
		fmt.Fprintln(os.Stderr, "optimize all: every candidate across every strategy was degenerate")
		return exitGenericError
	}

	console := reporting.NewDefaultConsoleReporter()
	console.PrintLeaderboard(all, 10)
	fmt.Printf("best overall: strategy=%s score=%.4f levels=%d spacing=%.4f\n",
		bestStrategy, overallBest.Score, overallBest.Candidate.GridLevels, overallBest.Candidate.GridSpacing)

	if *f.save != "" {
		if err := saveWinner(*f.save, bestStrategy, ctx, overallBest); err != nil {
			fmt.Fprintf(os.Stderr, "optimize all: %v\n", err)
			return exitGenericError
		}
	}
	return exitSuccess
}

func saveWinner(dir, strategy string, ctx optimize.EvalContext, best optimize.Evaluation) error {
	store, err := storage.New(dir)
	if err != nil {
		return err
	}
	cfg := config.NewGridConfig(ctx.Pair, ctx.BasePrice, best.Candidate.GridLevels, best.Candidate.GridSpacing, ctx.Capital)
	cfg.Timeframe = best.Candidate.Timeframe

	sf := storage.FromGridConfig(cfg, storage.OptimizationMetadata{
		Strategy:  strategy,
		Score:     best.Score,
		Timestamp: time.Now(),
	}, storage.PerformanceSummary{
		Return:     best.TotalReturn,
		Sharpe:     best.SharpeRatio,
		Drawdown:   best.MaxDrawdown,
		TradeCount: best.TradeCount,
	})
	return store.SaveStrategy(ctx.Pair, sf)
}
