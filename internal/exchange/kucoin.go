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

// kucoinAdapter implements the "HMAC-SHA256 base64 over ts+method+path+body"
// family spec §4.1 describes for several L1-listing venues: the prehash
// string is timestamp+method+requestPath+body, HMAC-SHA256'd and
// base64-encoded, with the passphrase itself HMAC'd by the same secret
// before being sent as a header (KuCoin's API-key-version-2 requirement).
type kucoinAdapter struct {
	baseClient
	intervals intervalTable
}

func newKuCoinAdapter() *kucoinAdapter {
	return &kucoinAdapter{
		baseClient: newBaseClient("kucoin", "https://api.kucoin.com", minIntervalFor("kucoin"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1min", domain.Interval3m: "3min", domain.Interval5m: "5min",
			domain.Interval15m: "15min", domain.Interval30m: "30min", domain.Interval1h: "1hour",
			domain.Interval2h: "2hour", domain.Interval4h: "4hour", domain.Interval6h: "6hour",
			domain.Interval12h: "12hour", domain.Interval1d: "1day", domain.Interval1w: "1week",
		},
	}
}

func (a *kucoinAdapter) Name() string { return "kucoin" }

func (a *kucoinAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

func (a *kucoinAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *kucoinAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *kucoinAdapter) TakerFee() decimal.Decimal { return takerFeeFor("kucoin") }
func (a *kucoinAdapter) MakerFee() decimal.Decimal { return makerFeeFor("kucoin") }
func (a *kucoinAdapter) MinRequestInterval() time.Duration { return minIntervalFor("kucoin") }

func (a *kucoinAdapter) signedHeaders(creds Credentials, method, path, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	prehash := ts + method + path + body
	sig := hmacB64SHA256(creds.APISecret, prehash)
	signedPassphrase := hmacB64SHA256(creds.APISecret, creds.Passphrase)
	return map[string]string{
		"KC-API-KEY":         creds.APIKey,
		"KC-API-SIGN":        sig,
		"KC-API-TIMESTAMP":   ts,
		"KC-API-PASSPHRASE":  signedPassphrase,
		"KC-API-KEY-VERSION": "2",
		"Content-Type":       "application/json",
	}
}

func (a *kucoinAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/v1/market/candles?symbol=%s&type=%s", a.ToVenuePair(pair), a.ToVenueInterval(interval))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kucoin: decode candles: %w", err)
	}
	if len(resp.Data) > limit && limit > 0 {
		resp.Data = resp.Data[:limit]
	}
	out := make([]domain.Candle, 0, len(resp.Data))
	for _, r := range resp.Data {
		if len(r) < 6 {
			continue
		}
		sec, _ := strconv.ParseInt(r[0], 10, 64)
		out = append(out, domain.Candle{
			Timestamp: time.Unix(sec, 0),
			Open:      decOrZero(r[1]),
			Close:     decOrZero(r[2]),
			High:      decOrZero(r[3]),
			Low:       decOrZero(r[4]),
			Volume:    decOrZero(r[5]),
		})
	}
	return out, nil
}

func (a *kucoinAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v1/market/orderbook/level1?symbol=" + a.ToVenuePair(pair)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("kucoin: decode level1: %w", err)
	}
	return decOrZero(resp.Data.Price), nil
}

func (a *kucoinAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v1/market/orderbook/level2_20?symbol=" + a.ToVenuePair(pair)})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data struct {
			Bids [][2]string `json:"bids"`
			Asks [][2]string `json:"asks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kucoin: decode orderbook: %w", err)
	}
	return domain.OrderBook{Bids: toLevels(resp.Data.Bids), Asks: toLevels(resp.Data.Asks)}, nil
}

func (a *kucoinAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	path := "/api/v1/accounts?currency=" + strings.ToUpper(currency) + "&type=trade"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path, Headers: a.signedHeaders(creds, "GET", path, "")})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Currency  string `json:"currency"`
			Available string `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("kucoin: decode accounts: %w", err)
	}
	for _, d := range resp.Data {
		if strings.EqualFold(d.Currency, currency) {
			return decOrZero(d.Available), nil
		}
	}
	return decimal.Zero, nil
}

func (a *kucoinAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"clientOid": fmt.Sprintf("%d", time.Now().UnixNano()),
		"side":      strings.ToLower(string(side)),
		"symbol":    a.ToVenuePair(pair),
		"type":      "market",
	}
	if side == domain.SideBuy {
		order["funds"] = quoteAmount.String()
	} else {
		order["size"] = baseQty.String()
	}
	body := mustJSON(order)
	path := "/api/v1/orders"
	resp, err := a.do(ctx, rawRequest{Method: "POST", URL: a.baseURL + path, Body: body, Headers: a.signedHeaders(creds, "POST", path, string(body))})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("kucoin: decode order: %w", err)
	}
	return domain.Fill{OrderID: out.Data.OrderID, Liquidity: "taker"}, nil
}

func (a *kucoinAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *kucoinAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *kucoinAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
