package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradebot/market"
)

const (
	// MainnetURL is the production Binance spot API.
	MainnetURL = "https://api.binance.com"
	// TestnetURL is the Binance spot testnet, for dry runs with fake funds.
	TestnetURL = "https://testnet.binance.vision"

	maxKlineLimit = 1000
)

// Client talks to the Binance spot REST API. Public endpoints work without
// credentials; signed endpoints (orders, account) need both key and secret.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	// now is swapped out in tests to pin request timestamps.
	now func() time.Time
}

// NewClient creates a Binance client. With testnet set it targets the spot
// testnet instead of production.
func NewClient(apiKey, apiSecret string, testnet bool) *Client {
	baseURL := MainnetURL
	if testnet {
		baseURL = TestnetURL
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// apiSymbol strips the separator from a pair like "BTC/USDT".
func apiSymbol(symbol string) string {
	return strings.ToUpper(strings.NewReplacer("/", "", "-", "").Replace(symbol))
}

// FetchBars fetches up to limit klines, oldest first. The still-forming
// kline is dropped so callers only ever see closed bars.
func (c *Client) FetchBars(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]market.Bar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 || limit > maxKlineLimit {
		return nil, fmt.Errorf("limit must be in 1..%d", maxKlineLimit)
	}

	params := url.Values{}
	params.Set("symbol", apiSymbol(symbol))
	params.Set("interval", string(tf))
	// One extra so the tail can be dropped without shorting the caller.
	params.Set("limit", strconv.Itoa(limit+1))

	var raw [][]any
	if err := c.get(ctx, "/api/v3/klines", params, &raw); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(raw))
	for _, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	// The last kline covers the current, unfinished interval.
	if len(bars) > 0 {
		closeTime := bars[len(bars)-1].Time.Add(tf.Duration())
		if closeTime.After(c.now()) {
			bars = bars[:len(bars)-1]
		}
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// parseKline decodes one kline row:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(k []any) (market.Bar, error) {
	if len(k) < 6 {
		return market.Bar{}, fmt.Errorf("kline has %d fields, want at least 6", len(k))
	}

	openMs, ok := k[0].(float64)
	if !ok {
		return market.Bar{}, fmt.Errorf("kline open time is %T, want number", k[0])
	}

	var prices [5]float64
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return market.Bar{}, fmt.Errorf("kline field %d is %T, want string", i, k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		prices[i-1] = v
	}

	return market.Bar{
		Time:   time.UnixMilli(int64(openMs)).UTC(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: prices[4],
	}, nil
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// TickerPrice returns the latest trade price.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", apiSymbol(symbol))

	var resp tickerResponse
	if err := c.get(ctx, "/api/v3/ticker/price", params, &resp); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", resp.Price, err)
	}
	return price, nil
}

type orderResponse struct {
	OrderID int64  `json:"orderId"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Fills   []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

// PlaceMarketOrder submits a signed market order and returns the average
// fill price across partial fills.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("quantity must be positive, got %v", quantity)
	}

	params := url.Values{}
	params.Set("symbol", apiSymbol(symbol))
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))

	var resp orderResponse
	if err := c.signedPost(ctx, "/api/v3/order", params, &resp); err != nil {
		return Order{}, err
	}

	var filledQty, notional float64
	for _, f := range resp.Fills {
		price, err := strconv.ParseFloat(f.Price, 64)
		if err != nil {
			return Order{}, fmt.Errorf("parse fill price: %w", err)
		}
		qty, err := strconv.ParseFloat(f.Qty, 64)
		if err != nil {
			return Order{}, fmt.Errorf("parse fill quantity: %w", err)
		}
		filledQty += qty
		notional += price * qty
	}

	order := Order{
		ID:       strconv.FormatInt(resp.OrderID, 10),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Time:     c.now().UTC(),
	}
	if filledQty > 0 {
		order.Price = notional / filledQty
	}
	return order, nil
}

type accountResponse struct {
	Balances []struct {
		Asset string `json:"asset"`
		Free  string `json:"free"`
	} `json:"balances"`
}

// Balance reports the free balance of one asset from the account snapshot.
func (c *Client) Balance(ctx context.Context, asset string) (float64, error) {
	var resp accountResponse
	if err := c.signedGet(ctx, "/api/v3/account", url.Values{}, &resp); err != nil {
		return 0, err
	}

	asset = strings.ToUpper(asset)
	for _, b := range resp.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("parse balance for %s: %w", asset, err)
			}
			return free, nil
		}
	}
	return 0, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, false, out)
}

func (c *Client) signedGet(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, true, out)
}

func (c *Client) signedPost(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, params, true, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	query := params.Encode()
	if signed {
		if c.apiKey == "" || c.apiSecret == "" {
			return fmt.Errorf("endpoint %s needs API credentials", path)
		}
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		// The signature covers every other parameter and goes last.
		query = params.Encode()
		query += "&signature=" + c.sign(query)
	}

	apiURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query)
	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sign computes the HMAC-SHA256 of the query string with the API secret.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
