package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/market"
)

func TestNewClient(t *testing.T) {
	t.Run("testnet", func(t *testing.T) {
		c := NewClient("key", "secret", true)
		assert.Equal(t, TestnetURL, c.baseURL)
		assert.NotNil(t, c.httpClient)
	})

	t.Run("mainnet", func(t *testing.T) {
		c := NewClient("key", "secret", false)
		assert.Equal(t, MainnetURL, c.baseURL)
	})
}

func TestAPISymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", apiSymbol("BTC/USDT"))
	assert.Equal(t, "ETHUSDT", apiSymbol("eth-usdt"))
	assert.Equal(t, "BTCUSDT", apiSymbol("BTCUSDT"))
}

func testClient(serverURL string) *Client {
	return &Client{
		baseURL:    serverURL,
		apiKey:     "key",
		apiSecret:  "secret",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        func() time.Time { return time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC) },
	}
}

func TestFetchBars(t *testing.T) {
	// Two closed hourly klines plus the still-forming one at 13:00.
	base := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	body := `[
		[` + ms(base) + `, "100.0", "101.0", "99.0", "100.5", "1200", 0],
		[` + ms(base.Add(time.Hour)) + `, "100.5", "102.0", "100.0", "101.5", "900", 0],
		[` + ms(base.Add(2*time.Hour)) + `, "101.5", "101.6", "101.4", "101.5", "10", 0]
	]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(body))
	}))
	defer server.Close()

	bars, err := testClient(server.URL).FetchBars(context.Background(), "BTC/USDT", market.H1, 2)
	require.NoError(t, err)

	// The unfinished kline is dropped.
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Equal(base))
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 101.0, bars[0].High)
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 1200.0, bars[0].Volume)
	assert.Equal(t, 101.5, bars[1].Close)
}

func TestFetchBarsErrors(t *testing.T) {
	c := NewClient("", "", true)

	_, err := c.FetchBars(context.Background(), "", market.H1, 10)
	assert.Error(t, err)

	_, err = c.FetchBars(context.Background(), "BTC/USDT", market.H1, 0)
	assert.Error(t, err)

	_, err = c.FetchBars(context.Background(), "BTC/USDT", market.H1, maxKlineLimit+1)
	assert.Error(t, err)
}

func TestFetchBarsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchBars(context.Background(), "NOPE/USDT", market.H1, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error")
}

func TestTickerPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64123.45"}`))
	}))
	defer server.Close()

	price, err := testClient(server.URL).TickerPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.InDelta(t, 64123.45, price, 1e-9)
}

func TestPlaceMarketOrderSigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))

		q := r.URL.Query()
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "0.5", q.Get("quantity"))
		assert.NotEmpty(t, q.Get("timestamp"))
		assert.Len(t, q.Get("signature"), 64) // hex-encoded HMAC-SHA256

		w.Write([]byte(`{
			"orderId": 42,
			"symbol": "BTCUSDT",
			"status": "FILLED",
			"fills": [
				{"price": "100.0", "qty": "0.3"},
				{"price": "101.0", "qty": "0.2"}
			]
		}`))
	}))
	defer server.Close()

	order, err := testClient(server.URL).PlaceMarketOrder(context.Background(), "BTC/USDT", Buy, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "42", order.ID)
	// Weighted average of the two fills.
	assert.InDelta(t, (100*0.3+101*0.2)/0.5, order.Price, 1e-9)
}

func TestSignedEndpointsNeedCredentials(t *testing.T) {
	c := NewClient("", "", true)

	_, err := c.PlaceMarketOrder(context.Background(), "BTC/USDT", Buy, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	_, err = c.Balance(context.Background(), "USDT")
	assert.Error(t, err)
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/account", r.URL.Path)
		w.Write([]byte(`{
			"balances": [
				{"asset": "BTC", "free": "0.25"},
				{"asset": "USDT", "free": "9500.5"}
			]
		}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	usdt, err := c.Balance(context.Background(), "usdt")
	require.NoError(t, err)
	assert.InDelta(t, 9500.5, usdt, 1e-9)

	eth, err := c.Balance(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Zero(t, eth)
}

func ms(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
