package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tradebot/market"
)

// Paper is an in-process exchange that fills every market order at the
// latest known price. Market data comes from an underlying feed, so a paper
// session trades fake funds against real prices.
type Paper struct {
	feed    MarketData
	feeRate float64

	mu       sync.Mutex
	balances map[string]float64
	last     map[string]float64 // latest close per symbol
	nextID   int
	orders   []Order
}

// NewPaper creates a paper exchange backed by the given data feed. The
// quote asset starts with the given balance.
func NewPaper(feed MarketData, quoteAsset string, quoteBalance, feeRate float64) *Paper {
	return &Paper{
		feed:    feed,
		feeRate: feeRate,
		balances: map[string]float64{
			strings.ToUpper(quoteAsset): quoteBalance,
		},
		last: map[string]float64{},
	}
}

func (p *Paper) FetchBars(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]market.Bar, error) {
	bars, err := p.feed.FetchBars(ctx, symbol, tf, limit)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		p.mu.Lock()
		p.last[symbol] = bars[len(bars)-1].Close
		p.mu.Unlock()
	}
	return bars, nil
}

func (p *Paper) TickerPrice(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.last[symbol]
	if !ok {
		return 0, fmt.Errorf("no price seen for %s yet", symbol)
	}
	return price, nil
}

// PlaceMarketOrder fills immediately at the latest close. Balances move in
// both assets of the pair and the fee is charged on the quote leg.
func (p *Paper) PlaceMarketOrder(_ context.Context, symbol string, side OrderSide, quantity float64) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("quantity must be positive, got %v", quantity)
	}

	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return Order{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.last[symbol]
	if !ok {
		return Order{}, fmt.Errorf("no price seen for %s yet", symbol)
	}

	notional := price * quantity
	fee := notional * p.feeRate

	switch side {
	case Buy:
		if p.balances[quote] < notional+fee {
			return Order{}, fmt.Errorf("insufficient %s balance: have %v, need %v",
				quote, p.balances[quote], notional+fee)
		}
		p.balances[quote] -= notional + fee
		p.balances[base] += quantity
	case Sell:
		if p.balances[base] < quantity {
			return Order{}, fmt.Errorf("insufficient %s balance: have %v, need %v",
				base, p.balances[base], quantity)
		}
		p.balances[base] -= quantity
		p.balances[quote] += notional - fee
	default:
		return Order{}, fmt.Errorf("unknown order side %q", side)
	}

	p.nextID++
	order := Order{
		ID:       fmt.Sprintf("paper-%d", p.nextID),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}
	p.orders = append(p.orders, order)

	slog.Info("paper fill",
		"symbol", symbol, "side", side, "qty", quantity, "price", price, "fee", fee)
	return order, nil
}

func (p *Paper) Balance(_ context.Context, asset string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[strings.ToUpper(asset)], nil
}

// Orders returns every fill so far, oldest first.
func (p *Paper) Orders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Order, len(p.orders))
	copy(out, p.orders)
	return out
}

func splitSymbol(symbol string) (base, quote string, err error) {
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(symbol, sep); i > 0 {
			return strings.ToUpper(symbol[:i]), strings.ToUpper(symbol[i+len(sep):]), nil
		}
	}
	return "", "", fmt.Errorf("symbol %q needs a base/quote separator", symbol)
}
