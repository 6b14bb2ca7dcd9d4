package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GridConfigManager implements Manager for GridConfig.
type GridConfigManager struct {
	validator Validator
}

// NewGridConfigManager creates a configuration manager with default
// cross-field validation.
func NewGridConfigManager() *GridConfigManager {
	return &GridConfigManager{validator: NewGridValidator()}
}

// Load builds a GridConfig starting from spec defaults, applies a JSON file
// if provided, then applies explicit overrides (non-zero fields in
// `overrides` win).
func (m *GridConfigManager) Load(configFile string, overrides GridConfig) (*GridConfig, error) {
	cfg := NewGridConfig(overrides.Pair, overrides.BasePrice, overrides.Levels, overrides.Spacing, overrides.Capital)

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	applyOverrides(cfg, overrides)

	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = cfg.Capital
	}
	if !(cfg.DefaultTradeSize > 0) && cfg.Levels > 0 && cfg.BasePrice > 0 {
		cfg.DefaultTradeSize = cfg.Capital / float64(cfg.Levels) / cfg.BasePrice
	}

	if err := m.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyOverrides copies any non-zero field from overrides onto cfg,
// letting command-line flags win over a loaded config file.
func applyOverrides(cfg *GridConfig, overrides GridConfig) {
	if overrides.Pair != "" {
		cfg.Pair = overrides.Pair
	}
	if overrides.BasePrice != 0 {
		cfg.BasePrice = overrides.BasePrice
	}
	if overrides.Levels != 0 {
		cfg.Levels = overrides.Levels
	}
	if overrides.Spacing != 0 {
		cfg.Spacing = overrides.Spacing
	}
	if overrides.Capital != 0 {
		cfg.Capital = overrides.Capital
	}
	if overrides.Timeframe != "" {
		cfg.Timeframe = overrides.Timeframe
	}
	if overrides.DataFile != "" {
		cfg.DataFile = overrides.DataFile
	}
}

// Validate validates a configuration using the manager's validator.
func (m *GridConfigManager) Validate(cfg *GridConfig) error {
	return m.validator.Validate(cfg)
}

// Save persists configuration to a JSON file, creating parent directories
// as needed.
func (m *GridConfigManager) Save(cfg *GridConfig, path string) error {
	data, err := cfg.ToJSON()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(data), 0644)
}

// ExchangeCredentials holds the API key/secret pair loaded from a .env file
// for live trading, following the teacher's godotenv-based convention.
type ExchangeCredentials struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// LoadExchangeCredentials reads BYBIT_API_KEY / BYBIT_API_SECRET (and the
// testnet/demo flags) from the given .env file, falling back to the
// process environment if the file does not exist.
func LoadExchangeCredentials(envFile string) (*ExchangeCredentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	creds := &ExchangeCredentials{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   os.Getenv("BYBIT_TESTNET") == "true",
		Demo:      os.Getenv("BYBIT_DEMO") == "true",
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("BYBIT_API_KEY and BYBIT_API_SECRET must be set for live trading")
	}
	return creds, nil
}
