package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// valrAdapter signs requests the way VALR's API requires (spec §4.1):
// HMAC-SHA512, hex-encoded, over timestamp+method+path+body.
type valrAdapter struct {
	baseClient
	intervals intervalTable
}

func newVALRAdapter() *valrAdapter {
	return &valrAdapter{
		baseClient: newBaseClient("valr", "https://api.valr.com", minIntervalFor("valr"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1m", domain.Interval5m: "5m", domain.Interval15m: "15m",
			domain.Interval30m: "30m", domain.Interval1h: "1h", domain.Interval4h: "4h",
			domain.Interval12h: "12h", domain.Interval1d: "1d", domain.Interval1w: "1w",
		},
	}
}

func (a *valrAdapter) Name() string { return "valr" }

func (a *valrAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *valrAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *valrAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *valrAdapter) TakerFee() decimal.Decimal { return takerFeeFor("valr") }
func (a *valrAdapter) MakerFee() decimal.Decimal { return makerFeeFor("valr") }
func (a *valrAdapter) MinRequestInterval() time.Duration { return minIntervalFor("valr") }

func (a *valrAdapter) signedHeaders(creds Credentials, method, path, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	prehash := ts + method + path + body
	sig := hmacHexSHA512(creds.APISecret, prehash)
	return map[string]string{
		"X-VALR-API-KEY":   creds.APIKey,
		"X-VALR-SIGNATURE": sig,
		"X-VALR-TIMESTAMP": ts,
		"Content-Type":     "application/json",
	}
}

func (a *valrAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/v1/public/%s/markdata/buckets?periodSeconds=%s", a.ToVenuePair(pair), a.ToVenueInterval(interval))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var rows []struct {
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
		Time   int64  `json:"startTime"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("valr: decode buckets: %w", err)
	}
	if len(rows) > limit && limit > 0 {
		rows = rows[len(rows)-limit:]
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Candle{
			Timestamp: time.Unix(r.Time, 0),
			Open:      decOrZero(r.Open),
			High:      decOrZero(r.High),
			Low:       decOrZero(r.Low),
			Close:     decOrZero(r.Close),
			Volume:    decOrZero(r.Volume),
		})
	}
	return out, nil
}

func (a *valrAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/v1/public/" + a.ToVenuePair(pair) + "/marketsummary"})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		LastTradedPrice string `json:"lastTradedPrice"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("valr: decode summary: %w", err)
	}
	return decOrZero(resp.LastTradedPrice), nil
}

func (a *valrAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/v1/public/" + a.ToVenuePair(pair) + "/orderbook"})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Bids []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"Bids"`
		Asks []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"Asks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("valr: decode orderbook: %w", err)
	}
	var ob domain.OrderBook
	for _, b := range resp.Bids {
		ob.Bids = append(ob.Bids, domain.OrderBookLevel{Price: decOrZero(b.Price), Size: decOrZero(b.Quantity)})
	}
	for _, a2 := range resp.Asks {
		ob.Asks = append(ob.Asks, domain.OrderBookLevel{Price: decOrZero(a2.Price), Size: decOrZero(a2.Quantity)})
	}
	return ob, nil
}

func (a *valrAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	path := "/v1/account/balances"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path, Headers: a.signedHeaders(creds, "GET", path, "")})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var rows []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("valr: decode balances: %w", err)
	}
	for _, r := range rows {
		if strings.EqualFold(r.Currency, currency) {
			return decOrZero(r.Available), nil
		}
	}
	return decimal.Zero, nil
}

func (a *valrAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"pair":      a.ToVenuePair(pair),
		"side":      string(side),
	}
	if side == domain.SideBuy {
		order["quoteAmount"] = quoteAmount.String()
	} else {
		order["baseAmount"] = baseQty.String()
	}
	body := mustJSON(order)
	path := "/v1/orders/market"
	resp, err := a.do(ctx, rawRequest{Method: "POST", URL: a.baseURL + path, Body: body, Headers: a.signedHeaders(creds, "POST", path, string(body))})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("valr: decode order: %w", err)
	}
	return domain.Fill{OrderID: out.ID, Liquidity: "taker"}, nil
}

func (a *valrAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *valrAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *valrAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "ZAR")
	return err
}
