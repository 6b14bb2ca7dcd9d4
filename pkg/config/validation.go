package config

import "fmt"

// GridValidator validates GridConfig values beyond the basic range checks
// in GridConfig.Validate, covering cross-field invariants against exchange
// constraints.
type GridValidator struct{}

// NewGridValidator creates a GridConfig validator.
func NewGridValidator() *GridValidator {
	return &GridValidator{}
}

// Validate runs GridConfig.Validate plus cross-field checks that depend on
// exchange constraints.
func (v *GridValidator) Validate(cfg *GridConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UseExchangeConstraints && cfg.DefaultTradeSize < cfg.MinOrderQty {
		return fmt.Errorf("default_trade_size %.8f is below exchange minimum order quantity %.8f", cfg.DefaultTradeSize, cfg.MinOrderQty)
	}
	return nil
}
