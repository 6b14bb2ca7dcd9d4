package bybit

import (
	"context"
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// OrderSide is the side of an order, Buy or Sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TimeInForce controls how long a resting order stays live.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Order is the subset of Bybit's order record a grid trader cares about:
// what filled, at what average price, and at what cost.
type Order struct {
	OrderID      string
	Symbol       string
	Side         OrderSide
	OrderType    OrderType
	OrderStatus  string
	CumExecQty   string
	CumExecValue string
	AvgPrice     string
}

// PlaceOrderParams are the parameters accepted by PlaceOrder. Category is
// restricted in practice to "spot" and "linear"; this module never trades
// options or inverse contracts.
type PlaceOrderParams struct {
	Category    string
	Symbol      string
	Side        OrderSide
	OrderType   OrderType
	Qty         string
	Price       string
	TimeInForce TimeInForce
	OrderLinkID string
}

// PlaceOrder submits an order and returns the exchange's acknowledgement.
// Quantity is adjusted to the symbol's lot-size constraints before submission.
func (c *Client) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if params.Side == "" {
		return nil, fmt.Errorf("side is required")
	}
	if params.OrderType == "" {
		return nil, fmt.Errorf("orderType is required")
	}
	if params.Qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if params.OrderType == OrderTypeLimit && params.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if params.OrderType == OrderTypeLimit && params.TimeInForce == "" {
		params.TimeInForce = TimeInForceGTC
	}

	if c.instrumentManager != nil {
		adjustedQty, err := c.instrumentManager.adjustQuantity(ctx, params.Category, params.Symbol, params.Qty)
		if err == nil {
			params.Qty = adjustedQty
		}
	}

	apiParams := map[string]interface{}{
		"category":  params.Category,
		"symbol":    params.Symbol,
		"side":      string(params.Side),
		"orderType": string(params.OrderType),
		"qty":       params.Qty,
	}
	if params.Price != "" {
		apiParams["price"] = params.Price
	}
	if params.TimeInForce != "" {
		apiParams["timeInForce"] = string(params.TimeInForce)
	}
	if params.OrderLinkID != "" {
		apiParams["orderLinkId"] = params.OrderLinkID
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	order, err := parseOrderResponse(result)
	if err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	return order, nil
}

// CancelOrder cancels an order by exchange order ID.
func (c *Client) CancelOrder(ctx context.Context, category, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	if _, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// GetOrderStatus fetches the current state of an order, used after
// placement to read back fill quantity, average price, and cost.
func (c *Client) GetOrderStatus(ctx context.Context, category, symbol, orderID string) (*Order, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get order status: %w", err)
	}

	orders, err := parseOrdersResponse(result)
	if err != nil {
		return nil, fmt.Errorf("parse order status response: %w", err)
	}
	for _, order := range orders {
		if order.OrderID == orderID {
			return &order, nil
		}
	}
	return nil, fmt.Errorf("order with id %s not found", orderID)
}

func parseOrderResponse(response interface{}) (*Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	var orderResult struct {
		OrderID      string `json:"orderId"`
		Symbol       string `json:"symbol"`
		Side         string `json:"side"`
		OrderType    string `json:"orderType"`
		OrderStatus  string `json:"orderStatus"`
		CumExecQty   string `json:"cumExecQty"`
		CumExecValue string `json:"cumExecValue"`
		AvgPrice     string `json:"avgPrice"`
	}
	if err := json.Unmarshal(resultBytes, &orderResult); err != nil {
		return nil, fmt.Errorf("unmarshal order result: %w", err)
	}

	return &Order{
		OrderID:      orderResult.OrderID,
		Symbol:       orderResult.Symbol,
		Side:         OrderSide(orderResult.Side),
		OrderType:    OrderType(orderResult.OrderType),
		OrderStatus:  orderResult.OrderStatus,
		CumExecQty:   orderResult.CumExecQty,
		CumExecValue: orderResult.CumExecValue,
		AvgPrice:     orderResult.AvgPrice,
	}, nil
}

func parseOrdersResponse(response interface{}) ([]Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	var listResult struct {
		List []struct {
			OrderID      string `json:"orderId"`
			Symbol       string `json:"symbol"`
			Side         string `json:"side"`
			OrderType    string `json:"orderType"`
			OrderStatus  string `json:"orderStatus"`
			CumExecQty   string `json:"cumExecQty"`
			CumExecValue string `json:"cumExecValue"`
			AvgPrice     string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("unmarshal order list result: %w", err)
	}

	orders := make([]Order, 0, len(listResult.List))
	for _, item := range listResult.List {
		orders = append(orders, Order{
			OrderID:      item.OrderID,
			Symbol:       item.Symbol,
			Side:         OrderSide(item.Side),
			OrderType:    OrderType(item.OrderType),
			OrderStatus:  item.OrderStatus,
			CumExecQty:   item.CumExecQty,
			CumExecValue: item.CumExecValue,
			AvgPrice:     item.AvgPrice,
		})
	}
	return orders, nil
}
