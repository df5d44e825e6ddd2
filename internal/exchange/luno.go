package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// lunoAdapter authenticates private calls with plain HTTP Basic auth
// (spec §4.1): apiKey as the username, apiSecret as the password, the
// simplest of every venue's scheme; like hitbtcAdapter, it needs no digest.
type lunoAdapter struct {
	baseClient
}

func newLunoAdapter() *lunoAdapter {
	return &lunoAdapter{
		baseClient: newBaseClient("luno", "https://api.luno.com", minIntervalFor("luno"), 10*time.Second),
	}
}

func (a *lunoAdapter) Name() string { return "luno" }

func (a *lunoAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *lunoAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

// Luno candles are fetched per fixed-duration "candles" endpoint rather than
// a named interval table; ToVenueInterval returns the seconds-per-candle
// string Luno's API expects.
func (a *lunoAdapter) ToVenueInterval(iv domain.Interval) string {
	switch iv {
	case domain.Interval1m:
		return "60"
	case domain.Interval5m:
		return "300"
	case domain.Interval15m:
		return "900"
	case domain.Interval30m:
		return "1800"
	case domain.Interval1h:
		return "3600"
	case domain.Interval4h:
		return "14400"
	case domain.Interval1d:
		return "86400"
	default:
		return "3600"
	}
}

func (a *lunoAdapter) TakerFee() decimal.Decimal { return takerFeeFor("luno") }
func (a *lunoAdapter) MakerFee() decimal.Decimal { return makerFeeFor("luno") }
func (a *lunoAdapter) MinRequestInterval() time.Duration { return minIntervalFor("luno") }

func (a *lunoAdapter) basicAuthHeader(creds Credentials) map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
	return map[string]string{"Authorization": "Basic " + token}
}

func (a *lunoAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	since := time.Now().Add(-time.Duration(limit) * time.Hour).UnixMilli()
	q := url.Values{}
	q.Set("pair", a.ToVenuePair(pair))
	q.Set("duration", a.ToVenueInterval(interval))
	q.Set("since", fmt.Sprint(since))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/exchange/1/candles?" + q.Encode()})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Candles []struct {
			Timestamp int64  `json:"timestamp"`
			Open      string `json:"open"`
			High      string `json:"high"`
			Low       string `json:"low"`
			Close     string `json:"close"`
			Volume    string `json:"volume"`
		} `json:"candles"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("luno: decode candles: %w", err)
	}
	out := make([]domain.Candle, 0, len(resp.Candles))
	for _, c := range resp.Candles {
		out = append(out, domain.Candle{
			Timestamp: time.UnixMilli(c.Timestamp),
			Open:      decOrZero(c.Open),
			High:      decOrZero(c.High),
			Low:       decOrZero(c.Low),
			Close:     decOrZero(c.Close),
			Volume:    decOrZero(c.Volume),
		})
	}
	return out, nil
}

func (a *lunoAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/1/ticker?pair=" + a.ToVenuePair(pair)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		LastTrade string `json:"last_trade"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("luno: decode ticker: %w", err)
	}
	return decOrZero(resp.LastTrade), nil
}

func (a *lunoAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/1/orderbook_top?pair=" + a.ToVenuePair(pair)})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Bids []struct {
			Price  string `json:"price"`
			Volume string `json:"volume"`
		} `json:"bids"`
		Asks []struct {
			Price  string `json:"price"`
			Volume string `json:"volume"`
		} `json:"asks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("luno: decode orderbook: %w", err)
	}
	var ob domain.OrderBook
	for _, b := range resp.Bids {
		ob.Bids = append(ob.Bids, domain.OrderBookLevel{Price: decOrZero(b.Price), Size: decOrZero(b.Volume)})
	}
	for _, a2 := range resp.Asks {
		ob.Asks = append(ob.Asks, domain.OrderBookLevel{Price: decOrZero(a2.Price), Size: decOrZero(a2.Volume)})
	}
	return ob, nil
}

func (a *lunoAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/1/balance", Headers: a.basicAuthHeader(creds)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Balance []struct {
			Asset    string `json:"asset"`
			Balance  string `json:"balance"`
			Reserved string `json:"reserved"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("luno: decode balance: %w", err)
	}
	for _, b := range resp.Balance {
		if strings.EqualFold(b.Asset, currency) {
			total := decOrZero(b.Balance)
			reserved := decOrZero(b.Reserved)
			return total.Sub(reserved), nil
		}
	}
	return decimal.Zero, nil
}

func (a *lunoAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	form := url.Values{}
	form.Set("pair", a.ToVenuePair(pair))
	if side == domain.SideBuy {
		form.Set("type", "BUY")
		form.Set("counter_volume", quoteAmount.String())
	} else {
		form.Set("type", "SELL")
		form.Set("base_volume", baseQty.String())
	}
	headers := a.basicAuthHeader(creds)
	headers["Content-Type"] = "application/x-www-form-urlencoded"
	body, err := a.do(ctx, rawRequest{Method: "POST", URL: a.baseURL + "/api/1/marketorder", Body: []byte(form.Encode()), Headers: headers})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Fill{}, fmt.Errorf("luno: decode marketorder: %w", err)
	}
	return domain.Fill{OrderID: resp.OrderID, Liquidity: "taker"}, nil
}

func (a *lunoAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *lunoAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *lunoAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "ZAR")
	return err
}
