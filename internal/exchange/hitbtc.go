package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// hitbtcAdapter, like lunoAdapter, authenticates with HTTP Basic auth —
// HitBTC's v2/v3 REST API accepts the API key/secret pair directly as Basic
// credentials, the same scheme the teacher's broker_hitbtc.go bridge
// ultimately forwards to HitBTC's HTTP layer.
type hitbtcAdapter struct {
	baseClient
	intervals intervalTable
}

func newHitBTCAdapter() *hitbtcAdapter {
	return &hitbtcAdapter{
		baseClient: newBaseClient("hitbtc", "https://api.hitbtc.com", minIntervalFor("hitbtc"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "M1", domain.Interval3m: "M3", domain.Interval5m: "M5",
			domain.Interval15m: "M15", domain.Interval30m: "M30", domain.Interval1h: "H1",
			domain.Interval4h: "H4", domain.Interval1d: "D1", domain.Interval1w: "D7",
		},
	}
}

func (a *hitbtcAdapter) Name() string { return "hitbtc" }

func (a *hitbtcAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *hitbtcAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *hitbtcAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *hitbtcAdapter) TakerFee() decimal.Decimal { return takerFeeFor("hitbtc") }
func (a *hitbtcAdapter) MakerFee() decimal.Decimal { return makerFeeFor("hitbtc") }
func (a *hitbtcAdapter) MinRequestInterval() time.Duration { return minIntervalFor("hitbtc") }

func (a *hitbtcAdapter) basicAuthHeader(creds Credentials) map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
	return map[string]string{"Authorization": "Basic " + token}
}

func (a *hitbtcAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/3/public/candles/%s?period=%s&limit=%d", a.ToVenuePair(pair), a.ToVenueInterval(interval), limit)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var rows []struct {
		Timestamp string `json:"timestamp"`
		Open      string `json:"open"`
		Close     string `json:"close"`
		Min       string `json:"min"`
		Max       string `json:"max"`
		Volume    string `json:"volume"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("hitbtc: decode candles: %w", err)
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			ts = time.Now()
		}
		out = append(out, domain.Candle{
			Timestamp: ts,
			Open:      decOrZero(r.Open),
			High:      decOrZero(r.Max),
			Low:       decOrZero(r.Min),
			Close:     decOrZero(r.Close),
			Volume:    decOrZero(r.Volume),
		})
	}
	return out, nil
}

func (a *hitbtcAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/3/public/ticker/" + a.ToVenuePair(pair)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Last string `json:"last"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("hitbtc: decode ticker: %w", err)
	}
	return decOrZero(resp.Last), nil
}

func (a *hitbtcAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/3/public/orderbook/" + a.ToVenuePair(pair) + "?depth=20"})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Bid [][2]interface{} `json:"bid"`
		Ask [][2]interface{} `json:"ask"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("hitbtc: decode orderbook: %w", err)
	}
	var ob domain.OrderBook
	for _, r := range resp.Bid {
		ob.Bids = append(ob.Bids, domain.OrderBookLevel{Price: decFromAny(r[0]), Size: decFromAny(r[1])})
	}
	for _, r := range resp.Ask {
		ob.Asks = append(ob.Asks, domain.OrderBookLevel{Price: decFromAny(r[0]), Size: decFromAny(r[1])})
	}
	return ob, nil
}

func (a *hitbtcAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/3/spot/balance", Headers: a.basicAuthHeader(creds)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var rows []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("hitbtc: decode balance: %w", err)
	}
	for _, r := range rows {
		if strings.EqualFold(r.Currency, currency) {
			return decOrZero(r.Available), nil
		}
	}
	return decimal.Zero, nil
}

func (a *hitbtcAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	form := map[string]interface{}{
		"symbol": a.ToVenuePair(pair),
		"side":   strings.ToLower(string(side)),
		"type":   "market",
	}
	if side == domain.SideBuy {
		form["quantity_type"] = "quote"
		form["quantity"] = quoteAmount.String()
	} else {
		form["quantity"] = baseQty.String()
	}
	body := mustJSON(form)
	headers := a.basicAuthHeader(creds)
	headers["Content-Type"] = "application/json"
	resp, err := a.do(ctx, rawRequest{Method: "POST", URL: a.baseURL + "/api/3/spot/order", Body: body, Headers: headers})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("hitbtc: decode order: %w", err)
	}
	return domain.Fill{OrderID: fmt.Sprint(out.ID), Liquidity: "taker"}, nil
}

func (a *hitbtcAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *hitbtcAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *hitbtcAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
