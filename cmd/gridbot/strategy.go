package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
	"github.com/vantrade/gridbot/pkg/reporting"
)

// runStrategy dispatches "strategy list", "strategy show", and "strategy
// export", the inspection surface over the persisted strategies table.
func runStrategy(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "strategy: expected a subcommand, \"list\", \"show\", or \"export\"")
		return exitUsageError
	}
	switch args[0] {
	case "list":
		return strategyList(args[1:])
	case "show":
		return strategyShow(args[1:])
	case "export":
		return strategyExport(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "strategy: unknown subcommand %q\n", args[0])
		return exitUsageError
	}
}

func strategyList(args []string) int {
	fs := flag.NewFlagSet("strategy list", flag.ContinueOnError)
	dir := fs.String("dir", config.StrategiesDir, "strategy storage directory")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}

	store, err := storage.New(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy list: %v\n", err)
		return exitGenericError
	}
	strategies, err := store.ListStrategies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy list: %v\n", err)
		return exitGenericError
	}

	reporting.NewDefaultConsoleReporter().PrintStrategyTable(strategies)
	return exitSuccess
}

func strategyShow(args []string) int {
	fs := flag.NewFlagSet("strategy show", flag.ContinueOnError)
	dir := fs.String("dir", config.StrategiesDir, "strategy storage directory")
	pair := fs.String("pair", "", "pair/strategy id to show (required)")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if *pair == "" {
		fmt.Fprintln(os.Stderr, "strategy show: --pair is required")
		return exitUsageError
	}

	store, err := storage.New(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy show: %v\n", err)
		return exitGenericError
	}
	sf, found, err := store.LoadStrategy(*pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy show: %v\n", err)
		return exitGenericError
	}
	if !found {
		fmt.Fprintf(os.Stderr, "strategy show: no strategy persisted for %q\n", *pair)
		return exitGenericError
	}

	reporting.NewDefaultConsoleReporter().PrintStrategyTable(map[string]storage.StrategyFile{*pair: sf})
	return exitSuccess
}

func strategyExport(args []string) int {
	fs := flag.NewFlagSet("strategy export", flag.ContinueOnError)
	dir := fs.String("dir", config.StrategiesDir, "strategy storage directory")
	pair := fs.String("pair", "", "pair/strategy id to export (required)")
	output := fs.String("output", "", "output GridConfig JSON path (required)")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if *pair == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "strategy export: --pair and --output are required")
		return exitUsageError
	}

	store, err := storage.New(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy export: %v\n", err)
		return exitGenericError
	}
	sf, found, err := store.LoadStrategy(*pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strategy export: %v\n", err)
		return exitGenericError
	}
	if !found {
		fmt.Fprintf(os.Stderr, "strategy export: no strategy persisted for %q\n", *pair)
		return exitGenericError
	}

	cfg := sf.ToGridConfig()
	mgr := config.NewGridConfigManager()
	if err := mgr.Save(cfg, *output); err != nil {
		fmt.Fprintf(os.Stderr, "strategy export: %v\n", err)
		return exitGenericError
	}
	fmt.Printf("exported %s to %s\n", *pair, *output)
	return exitSuccess
}
