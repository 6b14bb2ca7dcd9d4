// Command gridbot is the operator-facing CLI over the grid-trading
// system: initializing a strategy config, running the optimizer,
// backtesting, trading live, and inspecting persisted strategies.
// Grounded on the teacher's cmd/grid-backtest and cmd/live-bot-v2
// entrypoints, generalized from one flag.Parse() per binary to a verb
// dispatcher, each verb owning its own flag.FlagSet in the same style.
package main

import (
	"fmt"
	"os"
)

// Exit codes, per spec section 6.
const (
	exitSuccess          = 0
	exitGenericError     = 1
	exitUsageError       = 2
	exitPreflightFailure = 3
	exitRiskHalt         = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsageError
	}

	verb, rest := args[0], args[1:]
	switch verb {
	case "init":
		return runInit(rest)
	case "optimize":
		return runOptimize(rest)
	case "backtest":
		return runBacktest(rest)
	case "trade":
		return runTrade(rest)
	case "strategy":
		return runStrategy(rest)
	case "-h", "--help", "help":
		usage()
		return exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "gridbot: unknown command %q\n", verb)
		usage()
		return exitUsageError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `gridbot is the grid-trading system's operator CLI.

Usage:
  gridbot init [flags]
  gridbot optimize all|pair [flags]
  gridbot backtest demo|run [flags]
  gridbot trade start [flags]
  gridbot strategy list|show|export [flags]

Run "gridbot <command> -h" for flags specific to a command.`)
}
