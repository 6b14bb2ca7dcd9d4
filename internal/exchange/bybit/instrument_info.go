package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// InstrumentInfo holds the order constraints a grid trader checks before
// placing or sizing an order: tick size, quantity step, and min notional.
type InstrumentInfo struct {
	Symbol      string
	PriceFilter struct {
		TickSize string
	}
	LotSizeFilter struct {
		MinNotionalValue string
		MaxOrderQty      string
		MinOrderQty      string
		QtyStep          string
	}
}

// InstrumentManager caches per-symbol instrument constraints so repeated
// order placement doesn't refetch them on every call.
type InstrumentManager struct {
	client         *Client
	mu             sync.RWMutex
	instruments    map[string]*InstrumentInfo
	lastUpdate     time.Time
	updateInterval time.Duration
}

func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]*InstrumentInfo),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo returns cached constraints for symbol, refetching once
// the manager's most recent fetch (of any symbol) is older than its update
// interval; entries are not aged individually.
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	im.mu.RLock()
	if info, ok := im.instruments[symbol]; ok && time.Since(im.lastUpdate) < im.updateInterval {
		im.mu.RUnlock()
		return info, nil
	}
	im.mu.RUnlock()

	info, err := im.fetchInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return nil, err
	}

	im.mu.Lock()
	im.instruments[symbol] = info
	im.lastUpdate = time.Now()
	im.mu.Unlock()

	return info, nil
}

func (im *InstrumentManager) fetchInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	params := map[string]interface{}{"category": category}
	if symbol != "" {
		params["symbol"] = symbol
	}

	result, err := im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch instrument info: %w", err)
	}

	info, err := parseInstrumentInfoResponse(result, symbol)
	if err != nil {
		return nil, fmt.Errorf("parse instrument info: %w", err)
	}
	return info, nil
}

func parseInstrumentInfoResponse(response interface{}, targetSymbol string) (*InstrumentInfo, error) {
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
			Symbol      string `json:"symbol"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				MinNotionalValue string `json:"minNotionalValue"`
				MaxOrderQty      string `json:"maxOrderQty"`
				MinOrderQty      string `json:"minOrderQty"`
				QtyStep          string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("unmarshal instrument list: %w", err)
	}

	for _, item := range listResult.List {
		if item.Symbol != targetSymbol {
			continue
		}
		info := &InstrumentInfo{Symbol: item.Symbol}
		info.PriceFilter.TickSize = item.PriceFilter.TickSize
		info.LotSizeFilter.MinNotionalValue = item.LotSizeFilter.MinNotionalValue
		info.LotSizeFilter.MaxOrderQty = item.LotSizeFilter.MaxOrderQty
		info.LotSizeFilter.MinOrderQty = item.LotSizeFilter.MinOrderQty
		info.LotSizeFilter.QtyStep = item.LotSizeFilter.QtyStep
		return info, nil
	}

	return nil, fmt.Errorf("instrument %s not found", targetSymbol)
}

// adjustQuantity snaps qty into [minOrderQty, maxOrderQty] and rounds it to
// the nearest qtyStep, so PlaceOrder never rejects a grid level's size for
// violating lot-size rules the strategy itself has no reason to track.
func (im *InstrumentManager) adjustQuantity(ctx context.Context, category, symbol, qty string) (string, error) {
	instrument, err := im.GetInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return "", err
	}

	value, err := strconv.ParseFloat(qty, 64)
	if err != nil {
		return "", fmt.Errorf("invalid quantity format: %w", err)
	}

	minQty := parseFloat64(instrument.LotSizeFilter.MinOrderQty)
	maxQty := parseFloat64(instrument.LotSizeFilter.MaxOrderQty)
	step := parseFloat64(instrument.LotSizeFilter.QtyStep)

	if value < minQty {
		value = minQty
	}
	if maxQty > 0 && value > maxQty {
		value = maxQty
	}
	if step > 0 {
		value = math.Round(value/step) * step
		precision := int(math.Max(0, -math.Log10(step)))
		multiplier := math.Pow(10, float64(precision))
		value = math.Round(value*multiplier) / multiplier
	}

	return strconv.FormatFloat(value, 'f', -1, 64), nil
}
