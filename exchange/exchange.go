// Package exchange abstracts market data and order execution behind small
// interfaces so the live loop can run against a real venue or a paper one.
package exchange

import (
	"context"
	"time"

	"tradebot/market"
)

// MarketData fetches historical bars for a symbol.
type MarketData interface {
	// FetchBars returns up to limit of the most recent closed bars,
	// oldest first.
	FetchBars(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]market.Bar, error)
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Order is a filled (or submitted) market order.
type Order struct {
	ID       string
	Symbol   string
	Side     OrderSide
	Quantity float64
	Price    float64 // average fill price
	Time     time.Time
}

// Exchange is the full trading capability: market data plus execution and
// account state.
type Exchange interface {
	MarketData

	// TickerPrice returns the latest trade price for the symbol.
	TickerPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder submits a market order for the given base quantity.
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (Order, error)

	// Balance reports the free balance of the given asset.
	Balance(ctx context.Context, asset string) (float64, error)
}
