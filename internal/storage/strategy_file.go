// Package storage provides the out-of-scope persistence layer's interface
// realization: the JSON strategy-file schema from spec section 6, and a
// minimal file-backed store for the strategies/trades/execution_history/
// backtest_results tables. Grounded on the teacher's atomic
// temp-file-then-rename persistence idiom (write to a .tmp file, then
// rename it into place; no explicit fsync) and append-only trade log
// convention.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vantrade/gridbot/pkg/config"
)

// OptimizationMetadata records which optimizer run produced a strategy
// file, for provenance.
type OptimizationMetadata struct {
	Strategy   string    `json:"strategy"`
	Iterations int       `json:"iterations"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// PerformanceSummary is the backtest performance recorded alongside a
// persisted strategy.
type PerformanceSummary struct {
	Return     float64 `json:"return"`
	Sharpe     float64 `json:"sharpe"`
	Drawdown   float64 `json:"drawdown"`
	TradeCount int     `json:"trade_count"`
}

// StrategyFile is the bit-compatible, persisted JSON representation of a
// Grid Trader configuration plus its provenance and performance, per spec
// section 6.
type StrategyFile struct {
	TradingPair         string               `json:"trading_pair"`
	GridLevels          int                  `json:"grid_levels"`
	GridSpacing         float64              `json:"grid_spacing"`
	BasePrice           float64              `json:"base_price"`
	Capital             float64              `json:"capital"`
	MaxPositionFraction float64              `json:"max_position_fraction"`
	OptimizationMeta    OptimizationMetadata `json:"optimization_metadata"`
	Performance         PerformanceSummary   `json:"performance"`
}

// FromGridConfig builds the persisted strategy-file view of a GridConfig
// plus the optimizer/performance provenance that accompanies it.
func FromGridConfig(cfg *config.GridConfig, meta OptimizationMetadata, perf PerformanceSummary) StrategyFile {
	return StrategyFile{
		TradingPair:         cfg.Pair,
		GridLevels:          cfg.Levels,
		GridSpacing:         cfg.Spacing,
		BasePrice:           cfg.BasePrice,
		Capital:             cfg.Capital,
		MaxPositionFraction: cfg.MaxPositionFraction,
		OptimizationMeta:    meta,
		Performance:         perf,
	}
}

// ToGridConfig reconstructs the GridConfig fields a StrategyFile carries,
// applying the spec defaults for fields the file does not persist
// (emergency-exit threshold, default trade size, fees).
func (s StrategyFile) ToGridConfig() *config.GridConfig {
	cfg := config.NewGridConfig(s.TradingPair, s.BasePrice, s.GridLevels, s.GridSpacing, s.Capital)
	cfg.MaxPositionFraction = s.MaxPositionFraction
	return cfg
}

// WriteStrategyFile serializes a StrategyFile to path using an atomic
// write-then-rename so a reader never observes a partially written file.
func WriteStrategyFile(path string, sf StrategyFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal strategy file: %w", err)
	}
	return atomicWrite(path, data)
}

// ReadStrategyFile loads and parses a previously persisted StrategyFile
// (field values are not validated), round-tripping byte-identically through ToGridConfig's
// default-application when the caller re-serializes it.
func ReadStrategyFile(path string) (StrategyFile, error) {
	var sf StrategyFile
	data, err := os.ReadFile(path)
	if err != nil {
		return sf, fmt.Errorf("read strategy file: %w", err)
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, fmt.Errorf("parse strategy file: %w", err)
	}
	return sf, nil
}

// atomicWrite writes data to a temp file in the same directory as path
// and renames it into place, so a crash mid-write never leaves a
// corrupted file at path.
func atomicWrite(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit file: %w", err)
	}
	return nil
}
