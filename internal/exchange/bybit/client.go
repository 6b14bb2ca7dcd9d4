package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit v5 Unified Trading Account API for spot and linear
// perpetual order placement. It deliberately exposes nothing beyond what a
// spot/linear grid strategy needs: no margin, leverage, or position
// endpoints.
type Client struct {
	httpClient        *bybit_api.Client
	testnet           bool
	demo              bool
	instrumentManager *InstrumentManager
}

// Config holds the credentials and environment selection for a Client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // paper-trading environment
}

// NewClient builds a Client against the environment selected by config:
// demo (paper trading) takes priority over testnet, which takes priority
// over mainnet.
func NewClient(config Config) *Client {
	var baseURL string
	switch {
	case config.Demo:
		baseURL = "https://api-demo.bybit.com"
	case config.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
	c.instrumentManager = NewInstrumentManager(c)
	return c
}

func (c *Client) IsTestnet() bool { return c.testnet }
func (c *Client) IsDemo() bool    { return c.demo }

// GetEnvironment describes which of mainnet/testnet/demo this client talks to.
func (c *Client) GetEnvironment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// GetInstrumentManager returns the cached instrument-metadata lookup used
// for quantity/price constraint checks before an order is submitted.
func (c *Client) GetInstrumentManager() *InstrumentManager {
	return c.instrumentManager
}
