package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/market"
)

// sliceFeed serves a fixed bar series.
type sliceFeed struct {
	bars []market.Bar
}

func (f sliceFeed) FetchBars(_ context.Context, _ string, _ market.Timeframe, limit int) ([]market.Bar, error) {
	if limit > len(f.bars) {
		limit = len(f.bars)
	}
	return f.bars[len(f.bars)-limit:], nil
}

func newTestPaper(price float64) *Paper {
	feed := sliceFeed{bars: []market.Bar{{
		Time:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open:  price, High: price, Low: price, Close: price,
	}}}
	p := NewPaper(feed, "USDT", 10000, 0.001)
	// Prime the last-price cache.
	_, err := p.FetchBars(context.Background(), "BTC/USDT", market.H1, 1)
	if err != nil {
		panic(err)
	}
	return p
}

func TestPaperBuySellRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newTestPaper(100)

	buy, err := p.PlaceMarketOrder(ctx, "BTC/USDT", Buy, 10)
	require.NoError(t, err)
	assert.Equal(t, 100.0, buy.Price)

	btc, _ := p.Balance(ctx, "BTC")
	usdt, _ := p.Balance(ctx, "USDT")
	assert.InDelta(t, 10, btc, 1e-9)
	assert.InDelta(t, 10000-1000-1, usdt, 1e-9) // notional 1000, fee 1

	_, err = p.PlaceMarketOrder(ctx, "BTC/USDT", Sell, 10)
	require.NoError(t, err)

	btc, _ = p.Balance(ctx, "BTC")
	usdt, _ = p.Balance(ctx, "USDT")
	assert.InDelta(t, 0, btc, 1e-9)
	assert.InDelta(t, 10000-2, usdt, 1e-9) // round trip costs two fees

	assert.Len(t, p.Orders(), 2)
}

func TestPaperRejectsOverdraft(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newTestPaper(100)

	_, err := p.PlaceMarketOrder(ctx, "BTC/USDT", Buy, 1000) // needs 100k
	assert.ErrorContains(t, err, "insufficient")

	_, err = p.PlaceMarketOrder(ctx, "BTC/USDT", Sell, 1)
	assert.ErrorContains(t, err, "insufficient")
}

func TestPaperNeedsPriceFirst(t *testing.T) {
	t.Parallel()

	p := NewPaper(sliceFeed{}, "USDT", 10000, 0.001)
	_, err := p.PlaceMarketOrder(context.Background(), "BTC/USDT", Buy, 1)
	assert.ErrorContains(t, err, "no price seen")

	_, err = p.TickerPrice(context.Background(), "BTC/USDT")
	assert.Error(t, err)
}

func TestSplitSymbol(t *testing.T) {
	t.Parallel()

	base, quote, err := splitSymbol("btc/usdt")
	require.NoError(t, err)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	_, _, err = splitSymbol("BTCUSDT")
	assert.Error(t, err)
}
