package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vantrade/gridbot/internal/exchange"
)

// Timeframe enumerates the bar durations the Market State Analyzer and
// Backtest Driver accept for a pair's price series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

var validTimeframes = map[Timeframe]bool{
	Timeframe1m: true, Timeframe5m: true, Timeframe15m: true,
	Timeframe1h: true, Timeframe4h: true, Timeframe1d: true,
}

// RiskSizingMode selects how a candidate's position size is computed by the
// Parameter Optimizer. Only Fixed is wired into backtest execution today;
// the others are accepted, scored, and reported (see internal/optimize).
type RiskSizingMode string

const (
	RiskSizingFixed      RiskSizingMode = "fixed"
	RiskSizingKelly      RiskSizingMode = "kelly"
	RiskSizingVaR        RiskSizingMode = "var"
	RiskSizingVolAdjusted RiskSizingMode = "vol_adjusted"
)

// GridConfig is the immutable-after-construction configuration for a single
// pair's Grid Trader: base price, level count, spacing, allocated capital,
// and the position/emergency-exit thresholds that bound its behavior.
type GridConfig struct {
	// Pair identity and grid shape.
	Pair       string  `json:"pair"`
	BasePrice  float64 `json:"base_price"`  // P0, center of the grid at construction
	Levels     int     `json:"levels"`      // N in [1, 50]
	Spacing    float64 `json:"spacing"`     // s, fraction of P0, in (0, 0.5]

	// Capital and risk thresholds.
	Capital               float64 `json:"capital"`                 // C0 > 0
	MaxPositionFraction   float64 `json:"max_position_fraction"`   // f_max in (0,1], default 0.30
	EmergencyExitThreshold float64 `json:"emergency_exit_threshold"` // e in (0,1], default 0.20
	DefaultTradeSize      float64 `json:"default_trade_size"`      // base quantity per grid fill

	// Backtest/live ambient configuration.
	Timeframe      Timeframe `json:"timeframe"`
	InitialBalance float64   `json:"initial_balance"`
	MakerFee       float64   `json:"maker_fee"`
	TakerFee       float64   `json:"taker_fee"`
	DataFile       string    `json:"data_file"`

	// Exchange integration, populated from a live exchange adapter when
	// UseExchangeConstraints is set.
	UseExchangeConstraints bool   `json:"use_exchange_constraints"`
	ExchangeName           string `json:"exchange_name,omitempty"`
	MinOrderQty            float64 `json:"min_order_qty,omitempty"`
	MaxOrderQty            float64 `json:"max_order_qty,omitempty"`
	QtyStep                float64 `json:"qty_step,omitempty"`
	TickSize               float64 `json:"tick_size,omitempty"`
	MinNotional            float64 `json:"min_notional,omitempty"`
}

// DefaultMaxPositionFraction and DefaultEmergencyExitThreshold are the
// spec-mandated defaults applied when a config omits them.
const (
	DefaultMaxPositionFraction    = 0.30
	DefaultEmergencyExitThreshold = 0.20
	DefaultMakerFee               = 0.0016
	DefaultTakerFee               = 0.0026
	MinLevels                     = 1
	MaxLevels                     = 50
	MinSpacing                    = 0.0 // exclusive
	MaxSpacing                    = 0.5
)

// NewGridConfig returns a GridConfig with the spec defaults applied, ready
// for the caller to override pair-specific fields before calling Validate.
func NewGridConfig(pair string, basePrice float64, levels int, spacing, capital float64) *GridConfig {
	return &GridConfig{
		Pair:                   pair,
		BasePrice:              basePrice,
		Levels:                 levels,
		Spacing:                spacing,
		Capital:                capital,
		MaxPositionFraction:    DefaultMaxPositionFraction,
		EmergencyExitThreshold: DefaultEmergencyExitThreshold,
		DefaultTradeSize:       capital / float64(levels) / basePrice,
		Timeframe:              Timeframe5m,
		InitialBalance:         capital,
		MakerFee:               DefaultMakerFee,
		TakerFee:               DefaultTakerFee,
	}
}

// Validate enforces the invariant ranges from the grid configuration
// section: level count, spacing, capital, and threshold bounds.
func (gc *GridConfig) Validate() error {
	if gc.Pair == "" {
		return fmt.Errorf("pair is required")
	}
	if gc.BasePrice <= 0 {
		return fmt.Errorf("base_price must be positive, got: %f", gc.BasePrice)
	}
	if gc.Levels < MinLevels || gc.Levels > MaxLevels {
		return fmt.Errorf("levels must be in [%d, %d], got: %d", MinLevels, MaxLevels, gc.Levels)
	}
	if gc.Spacing <= MinSpacing || gc.Spacing > MaxSpacing {
		return fmt.Errorf("spacing must be in (%v, %v], got: %f", MinSpacing, MaxSpacing, gc.Spacing)
	}
	if gc.Capital <= 0 {
		return fmt.Errorf("capital must be positive, got: %f", gc.Capital)
	}
	if gc.MaxPositionFraction <= 0 || gc.MaxPositionFraction > 1 {
		return fmt.Errorf("max_position_fraction must be in (0,1], got: %f", gc.MaxPositionFraction)
	}
	if gc.EmergencyExitThreshold <= 0 || gc.EmergencyExitThreshold > 1 {
		return fmt.Errorf("emergency_exit_threshold must be in (0,1], got: %f", gc.EmergencyExitThreshold)
	}
	if gc.DefaultTradeSize <= 0 {
		return fmt.Errorf("default_trade_size must be positive, got: %f", gc.DefaultTradeSize)
	}
	if gc.Timeframe != "" && !validTimeframes[gc.Timeframe] {
		return fmt.Errorf("unsupported timeframe: %s", gc.Timeframe)
	}
	if gc.MakerFee < 0 || gc.TakerFee < 0 {
		return fmt.Errorf("fee rates must be non-negative")
	}
	if gc.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive, got: %f", gc.InitialBalance)
	}
	return nil
}

// GetGridInfo returns a human-readable summary of the configuration.
func (gc *GridConfig) GetGridInfo() string {
	return fmt.Sprintf(
		"Pair: %s\n"+
			"  Base Price: %.4f\n"+
			"  Levels: %d | Spacing: %.4f\n"+
			"  Capital: %.2f | Max Position Fraction: %.2f | Emergency Exit: %.2f\n"+
			"  Timeframe: %s | Maker/Taker Fees: %.4f/%.4f",
		gc.Pair, gc.BasePrice, gc.Levels, gc.Spacing,
		gc.Capital, gc.MaxPositionFraction, gc.EmergencyExitThreshold,
		gc.Timeframe, gc.MakerFee, gc.TakerFee)
}

// LoadGridConfigFromJSON loads a GridConfig from a JSON file on disk.
func LoadGridConfigFromJSON(filename string) (*GridConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GridConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ToJSON serializes the configuration, used for the persisted strategy file.
func (gc *GridConfig) ToJSON() (string, error) {
	data, err := json.MarshalIndent(gc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to JSON: %w", err)
	}
	return string(data), nil
}

// PopulateExchangeConstraints fetches live instrument constraints and
// records them on the config for quantity rounding.
func (gc *GridConfig) PopulateExchangeConstraints(ctx context.Context, ex exchange.Exchange) error {
	if !gc.UseExchangeConstraints {
		return nil
	}
	constraints, err := ex.GetInstrumentConstraints(ctx, "linear", gc.Pair)
	if err != nil {
		return fmt.Errorf("failed to get instrument constraints: %w", err)
	}
	gc.MinOrderQty = constraints.MinOrderQty
	gc.MaxOrderQty = constraints.MaxOrderQty
	gc.QtyStep = constraints.QtyStep
	gc.TickSize = constraints.TickSize
	gc.MinNotional = constraints.MinNotional
	gc.ExchangeName = ex.GetName()
	return nil
}

// QuantizeQuantity rounds a raw quantity to the exchange's step size and
// enforces its minimum order quantity, when exchange constraints are active.
func (gc *GridConfig) QuantizeQuantity(quantity float64) float64 {
	if !gc.UseExchangeConstraints {
		return quantity
	}
	if quantity < gc.MinOrderQty {
		quantity = gc.MinOrderQty
	}
	if gc.QtyStep > 0 {
		steps := quantity / gc.QtyStep
		quantity = float64(int64(steps+0.5)) * gc.QtyStep
	}
	if gc.MaxOrderQty > 0 && quantity > gc.MaxOrderQty {
		quantity = gc.MaxOrderQty
	}
	return quantity
}
