// Package exchange defines the live-mode exchange-adapter contract consumed
// by the Live Engine, plus an adapter backed by the Bybit REST API.
package exchange

import (
	"context"

	"github.com/vantrade/gridbot/internal/boterrors"
	"github.com/vantrade/gridbot/pkg/types"
)

// InstrumentConstraints are the exchange-side limits a Grid Trader's orders
// must respect for a given symbol.
type InstrumentConstraints struct {
	MinOrderQty float64
	MaxOrderQty float64
	QtyStep     float64
	TickSize    float64
	MinNotional float64
}

// Exchange is the live-mode order-routing contract: submit_order and
// cancel_order, plus connection lifecycle and constraint lookup. Errors
// returned from Submit/Cancel are *boterrors.BotError classified as
// CategoryExchange (retriable) or CategoryFatal (abandon the order).
type Exchange interface {
	GetName() string
	Connect(ctx context.Context) error
	Disconnect() error

	// GetInstrumentConstraints fetches the exchange's trading limits for a
	// symbol, used to quantize grid order sizes.
	GetInstrumentConstraints(ctx context.Context, category, symbol string) (*InstrumentConstraints, error)

	// SubmitOrder places an order and returns its fill, or a categorized
	// error if the exchange rejected or could not be reached.
	SubmitOrder(ctx context.Context, order types.Order) (*types.Fill, error)

	// CancelOrder cancels a previously submitted order by id.
	CancelOrder(ctx context.Context, orderID string) error
}

// ClassifyExchangeError wraps a raw transport/API error as Retriable
// (network, rate-limit) or Fatal (rejected order, insufficient balance),
// per the exchange-adapter contract.
func ClassifyExchangeError(err error, operation string, retriable bool) *boterrors.BotError {
	category := boterrors.CategoryExchange
	if !retriable {
		category = boterrors.CategoryFatal
	}
	return boterrors.Wrap(err, category, "exchange", operation).WithRetryable(retriable)
}
