package exchange

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/vantrade/gridbot/internal/exchange/bybit"
	"github.com/vantrade/gridbot/pkg/types"
)

// BybitAdapter implements Exchange against the Bybit REST API, for linear
// perpetual contracts.
type BybitAdapter struct {
	client    *bybit.Client
	category  string
	demo      bool
	testnet   bool
	connected bool

	mu            sync.Mutex
	symbolByOrder map[string]string // orderID -> symbol, for cancel_order(id)
}

// BybitAdapterConfig configures a BybitAdapter.
type BybitAdapterConfig struct {
	APIKey    string
	APISecret string
	Category  string // "linear" or "spot"
	Testnet   bool
	Demo      bool
}

// NewBybitAdapter creates an unconnected Bybit adapter.
func NewBybitAdapter(cfg BybitAdapterConfig) *BybitAdapter {
	category := cfg.Category
	if category == "" {
		category = "linear"
	}
	return &BybitAdapter{
		client: bybit.NewClient(bybit.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Testnet:   cfg.Testnet,
			Demo:      cfg.Demo,
		}),
		category:      category,
		demo:          cfg.Demo,
		testnet:       cfg.Testnet,
		symbolByOrder: make(map[string]string),
	}
}

func (a *BybitAdapter) GetName() string { return "bybit" }

// Connect marks the adapter connected. Bybit's REST API has no persistent
// session, so Connect makes no network call; it neither checks readiness
// nor preloads instrument metadata (that is fetched on first use).
func (a *BybitAdapter) Connect(ctx context.Context) error {
	a.connected = true
	return nil
}

func (a *BybitAdapter) Disconnect() error {
	a.connected = false
	return nil
}

// GetInstrumentConstraints fetches min/max order quantity, step size, tick
// size, and minimum notional for a symbol.
func (a *BybitAdapter) GetInstrumentConstraints(ctx context.Context, category, symbol string) (*InstrumentConstraints, error) {
	if category == "" {
		category = a.category
	}
	info, err := a.client.GetInstrumentManager().GetInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return nil, ClassifyExchangeError(err, "get_instrument_constraints", true)
	}

	minQty, _ := strconv.ParseFloat(info.LotSizeFilter.MinOrderQty, 64)
	maxQty, _ := strconv.ParseFloat(info.LotSizeFilter.MaxOrderQty, 64)
	qtyStep, _ := strconv.ParseFloat(info.LotSizeFilter.QtyStep, 64)
	tickSize, _ := strconv.ParseFloat(info.PriceFilter.TickSize, 64)
	minNotional, _ := strconv.ParseFloat(info.LotSizeFilter.MinNotionalValue, 64)

	return &InstrumentConstraints{
		MinOrderQty: minQty,
		MaxOrderQty: maxQty,
		QtyStep:     qtyStep,
		TickSize:    tickSize,
		MinNotional: minNotional,
	}, nil
}

// SubmitOrder places a market or limit order and reports back a Fill built
// from the exchange's average execution price. Placement errors that carry
// no Bybit error code (transport failures) and Bybit rate limiting are
// classified as retriable; any other Bybit error code (a rejected order,
// insufficient funds) is fatal.
func (a *BybitAdapter) SubmitOrder(ctx context.Context, order types.Order) (*types.Fill, error) {
	side := bybit.OrderSideBuy
	if order.Side == types.SideSell {
		side = bybit.OrderSideSell
	}

	params := bybit.PlaceOrderParams{
		Category:    a.category,
		Symbol:      order.Pair,
		Side:        side,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         strconv.FormatFloat(order.Quantity, 'f', -1, 64),
		OrderLinkID: order.ID,
	}
	if order.Type == types.OrderTypeLimit {
		params.OrderType = bybit.OrderTypeLimit
		params.Price = strconv.FormatFloat(order.LimitPrice, 'f', -1, 64)
		params.TimeInForce = bybit.TimeInForceGTC
	}

	placed, err := a.client.PlaceOrder(ctx, params)
	if err != nil {
		var apiErr *bybit.BybitError
		retriable := !errors.As(err, &apiErr) || bybit.IsRetryableError(err)
		return nil, ClassifyExchangeError(err, "submit_order", retriable)
	}

	a.mu.Lock()
	a.symbolByOrder[placed.OrderID] = order.Pair
	a.mu.Unlock()

	status, err := a.client.GetOrderStatus(ctx, a.category, order.Pair, placed.OrderID)
	if err != nil {
		return nil, ClassifyExchangeError(err, "submit_order:poll_status", true)
	}

	avgPrice, _ := strconv.ParseFloat(status.AvgPrice, 64)
	cumQty, _ := strconv.ParseFloat(status.CumExecQty, 64)
	cumValue, _ := strconv.ParseFloat(status.CumExecValue, 64)

	return &types.Fill{
		OrderID:           order.ID,
		FilledQuantity:    cumQty,
		AveragePrice:      avgPrice,
		Fee:               cumValue * feeRateFor(status.OrderType),
		RemainingQuantity: order.Quantity - cumQty,
	}, nil
}

// CancelOrder cancels an order by id, looking up the symbol it was placed
// under (Bybit's cancel endpoint requires it).
func (a *BybitAdapter) CancelOrder(ctx context.Context, orderID string) error {
	a.mu.Lock()
	symbol := a.symbolByOrder[orderID]
	a.mu.Unlock()

	if err := a.client.CancelOrder(ctx, a.category, symbol, orderID); err != nil {
		retriable := bybit.IsRetryableError(err)
		return ClassifyExchangeError(err, "cancel_order", retriable)
	}
	return nil
}

func feeRateFor(orderType bybit.OrderType) float64 {
	if orderType == bybit.OrderTypeLimit {
		return 0.0016 // maker
	}
	return 0.0026 // taker
}
