package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vantrade/gridbot/pkg/config"
)

// runInit writes a default GridConfig JSON file for a pair, the starting
// point an operator edits before backtest or optimize.
func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	pair := fs.String("pair", "", "trading pair, e.g. BTCUSDT (required)")
	basePrice := fs.Float64("base-price", 0, "grid center price (required)")
	levels := fs.Int("levels", 10, "grid levels per side")
	spacing := fs.Float64("spacing", 0.01, "grid spacing as a fraction of base price")
	capital := fs.Float64("capital", 1000, "starting capital")
	output := fs.String("output", "config.json", "output path for the generated config")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}

	if *pair == "" || *basePrice <= 0 {
		fmt.Fprintln(os.Stderr, "init: --pair and --base-price are required")
		return exitUsageError
	}

	cfg := config.NewGridConfig(*pair, *basePrice, *levels, *spacing, *capital)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "init: generated config failed validation: %v\n", err)
		return exitPreflightFailure
	}

	mgr := config.NewGridConfigManager()
	if err := mgr.Save(cfg, *output); err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		return exitGenericError
	}

	fmt.Printf("wrote %s for %s (levels=%d spacing=%.4f capital=%.2f)\n", *output, *pair, *levels, *spacing, *capital)
	return exitSuccess
}
