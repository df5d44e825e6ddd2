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

// bitgetAdapter reuses the OKX-family signing shape (spec §4.1) but Bitget's
// spot symbols carry a "_SPBL" suffix instead of OKX's hyphen separator, so
// ToVenuePair/FromVenuePair differ from okxAdapter's.
type bitgetAdapter struct {
	baseClient
	intervals intervalTable
}

func newBitgetAdapter() *bitgetAdapter {
	return &bitgetAdapter{
		baseClient: newBaseClient("bitget", "https://api.bitget.com", minIntervalFor("bitget"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1min", domain.Interval5m: "5min", domain.Interval15m: "15min",
			domain.Interval30m: "30min", domain.Interval1h: "1h", domain.Interval4h: "4h",
			domain.Interval6h: "6h", domain.Interval12h: "12h", domain.Interval1d: "1day",
			domain.Interval1w: "1week",
		},
	}
}

func (a *bitgetAdapter) Name() string { return "bitget" }

func (a *bitgetAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote) + "_SPBL"
}

func (a *bitgetAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *bitgetAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *bitgetAdapter) TakerFee() decimal.Decimal { return takerFeeFor("bitget") }
func (a *bitgetAdapter) MakerFee() decimal.Decimal { return makerFeeFor("bitget") }
func (a *bitgetAdapter) MinRequestInterval() time.Duration { return minIntervalFor("bitget") }

func (a *bitgetAdapter) signedHeaders(creds Credentials, method, path, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	prehash := ts + method + path + body
	sig := hmacB64SHA256(creds.APISecret, prehash)
	return map[string]string{
		"ACCESS-KEY":        creds.APIKey,
		"ACCESS-SIGN":       sig,
		"ACCESS-TIMESTAMP":  ts,
		"ACCESS-PASSPHRASE": creds.Passphrase,
		"Content-Type":      "application/json",
	}
}

func (a *bitgetAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/spot/v1/market/candles?symbol=%s&period=%s&limit=%d", a.ToVenuePair(pair), a.ToVenueInterval(interval), limit)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var rows []struct {
		Open  string `json:"open"`
		High  string `json:"high"`
		Low   string `json:"low"`
		Close string `json:"close"`
		Vol   string `json:"quoteVol"`
		Ts    string `json:"ts"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("bitget: decode candles: %w", err)
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		ms, _ := strconv.ParseInt(r.Ts, 10, 64)
		out = append(out, domain.Candle{
			Timestamp: time.UnixMilli(ms),
			Open:      decOrZero(r.Open),
			High:      decOrZero(r.High),
			Low:       decOrZero(r.Low),
			Close:     decOrZero(r.Close),
			Volume:    decOrZero(r.Vol),
		})
	}
	return out, nil
}

func (a *bitgetAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	path := "/api/spot/v1/market/ticker?symbol=" + a.ToVenuePair(pair)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data struct {
			Close string `json:"close"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("bitget: decode ticker: %w", err)
	}
	return decOrZero(resp.Data.Close), nil
}

func (a *bitgetAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	path := "/api/spot/v1/market/depth?symbol=" + a.ToVenuePair(pair) + "&limit=20&type=step0"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
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
		return domain.OrderBook{}, fmt.Errorf("bitget: decode depth: %w", err)
	}
	return domain.OrderBook{Bids: toLevels(resp.Data.Bids), Asks: toLevels(resp.Data.Asks)}, nil
}

func (a *bitgetAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	path := "/api/spot/v1/account/assets"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path, Headers: a.signedHeaders(creds, "GET", path, "")})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			CoinName  string `json:"coinName"`
			Available string `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("bitget: decode assets: %w", err)
	}
	for _, d := range resp.Data {
		if strings.EqualFold(d.CoinName, currency) {
			return decOrZero(d.Available), nil
		}
	}
	return decimal.Zero, nil
}

func (a *bitgetAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"symbol":   a.ToVenuePair(pair),
		"side":     strings.ToLower(string(side)),
		"orderType": "market",
	}
	if !quoteAmount.IsZero() {
		order["quantity"] = quoteAmount.String()
	} else {
		order["quantity"] = baseQty.String()
	}
	body := mustJSON(order)
	path := "/api/spot/v1/trade/orders"
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
		return domain.Fill{}, fmt.Errorf("bitget: decode order: %w", err)
	}
	return domain.Fill{OrderID: out.Data.OrderID, Liquidity: "taker"}, nil
}

func (a *bitgetAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *bitgetAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *bitgetAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
