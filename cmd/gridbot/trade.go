package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vantrade/gridbot/internal/engine"
	"github.com/vantrade/gridbot/internal/exchange"
	"github.com/vantrade/gridbot/internal/feed"
	"github.com/vantrade/gridbot/internal/logger"
	"github.com/vantrade/gridbot/internal/monitoring"
	"github.com/vantrade/gridbot/internal/portfolio"
	"github.com/vantrade/gridbot/internal/storage"
	"github.com/vantrade/gridbot/pkg/config"
)

// configList collects repeated -config flags into a slice, one GridConfig
// file per traded pair.
type configList []string

func (c *configList) String() string { return strings.Join(*c, ",") }
func (c *configList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// runTrade implements "trade start": connects the feed (and, in live
// mode, the exchange), wires every pair's Grid Trader into the Live
// Engine behind a shared Portfolio Risk Controller, and runs until an
// interrupt or a risk halt.
func runTrade(args []string) int {
	if len(args) == 0 || args[0] != "start" {
		fmt.Fprintln(os.Stderr, "trade: expected subcommand \"start\"")
		return exitUsageError
	}
	return tradeStart(args[1:])
}

func tradeStart(args []string) int {
	fs := flag.NewFlagSet("trade start", flag.ContinueOnError)
	var configs configList
	fs.Var(&configs, "config", "GridConfig JSON file for a traded pair (repeatable)")
	live := fs.Bool("live", false, "route orders through a connected exchange instead of the dry-run simulator; the feed always supplies live prices either way")
	envFile := fs.String("env", ".env", "credentials file for live trading")
	feedURL := fs.String("feed-url", "", "WebSocket feed URL (required)")
	storeDir := fs.String("store", config.ResultsDir, "persistence directory for trades and execution history")
	healthAddr := fs.String("health-addr", ":8080", "address to serve /healthz and /metrics on")
	seed := fs.Int64("seed", 1, "dry-run simulator random seed")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if len(configs) == 0 {
		fmt.Fprintln(os.Stderr, "trade start: at least one --config is required")
		return exitUsageError
	}
	if *feedURL == "" {
		fmt.Fprintln(os.Stderr, "trade start: --feed-url is required")
		return exitUsageError
	}

	mgr := config.NewGridConfigManager()
	var cfgs []*config.GridConfig
	for _, path := range configs {
		cfg, err := mgr.Load(path, config.GridConfig{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "trade start: %v\n", err)
			return exitPreflightFailure
		}
		cfgs = append(cfgs, cfg)
	}

	store, err := storage.New(*storeDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trade start: %v\n", err)
		return exitGenericError
	}

	totalCapital := 0.0
	for _, cfg := range cfgs {
		totalCapital += cfg.Capital
	}
	risk := portfolio.New(portfolio.DefaultConfig(), totalCapital)

	var opts []engine.Option
	opts = append(opts, engine.WithStore(store))

	var exch exchange.Exchange
	if *live {
		creds, err := config.LoadExchangeCredentials(*envFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trade start: %v\n", err)
			return exitPreflightFailure
		}
		adapter := exchange.NewBybitAdapter(exchange.BybitAdapterConfig{
			APIKey:    creds.APIKey,
			APISecret: creds.APISecret,
			Category:  "linear",
			Testnet:   creds.Testnet,
			Demo:      creds.Demo,
		})
		exch = adapter
		opts = append(opts, engine.WithExchange(exch))
	}

	eng := engine.New(risk, *seed, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *live {
		if err := exch.Connect(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "trade start: connect exchange: %v\n", err)
			return exitPreflightFailure
		}
		defer exch.Disconnect()
	}

	for _, cfg := range cfgs {
		if _, err := eng.AddPair(cfg, cfg.BasePrice); err != nil {
			fmt.Fprintf(os.Stderr, "trade start: %v\n", err)
			return exitPreflightFailure
		}
	}

	health := monitoring.NewHealthChecker()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)
	healthSrv := &http.Server{Addr: *healthAddr, Handler: mux}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "trade start: health server: %v\n", err)
		}
	}()
	defer healthSrv.Close()

	feedLogger, err := logger.New("feed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "trade start: %v\n", err)
		return exitGenericError
	}
	defer feedLogger.Close()

	f := feed.New(*feedURL, feedLogger)
	go func() {
		if err := f.Run(ctx); err != nil && ctx.Err() == nil {
			health.RecordFault(fmt.Sprintf("feed stopped: %v", err))
			fmt.Fprintf(os.Stderr, "trade start: feed stopped: %v\n", err)
		}
	}()
	health.SetConnected(true)
	updates := teeHealth(f.Updates(), health)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		eng.Stop()
		cancel()
	}()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if risk.IsHalted() {
					eng.Stop()
					cancel()
					return
				}
			}
		}
	}()

	runErr := eng.Run(ctx, updates)

	if risk.IsHalted() {
		fmt.Fprintln(os.Stderr, "trade start: portfolio risk halt engaged, stopping")
		return exitRiskHalt
	}
	if runErr != nil && runErr != context.Canceled {
		fmt.Fprintf(os.Stderr, "trade start: %v\n", runErr)
		return exitGenericError
	}
	return exitSuccess
}

// teeHealth forwards every feed update unchanged while recording tick
// price/time on probe, so /healthz can detect a feed that has gone quiet
// without the Live Engine needing to know about health reporting at all.
func teeHealth(updates <-chan feed.Update, probe *monitoring.LivenessProbe) <-chan feed.Update {
	out := make(chan feed.Update)
	go func() {
		defer close(out)
		for u := range updates {
			if u.Tick != nil {
				probe.RecordTick(u.Tick.Price, time.Now())
			}
			out <- u
		}
	}()
	return out
}
