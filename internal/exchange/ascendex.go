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

// ascendexAdapter signs requests with AscendEX's scheme (spec §4.1): the
// prehash message is "timestamp+path" (joined with a literal "+"), HMAC-SHA256
// over that, base64-encoded.
type ascendexAdapter struct {
	baseClient
	intervals intervalTable
}

func newAscendEXAdapter() *ascendexAdapter {
	return &ascendexAdapter{
		baseClient: newBaseClient("ascendex", "https://ascendex.com", minIntervalFor("ascendex"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1", domain.Interval5m: "5", domain.Interval15m: "15",
			domain.Interval30m: "30", domain.Interval1h: "60", domain.Interval4h: "240",
			domain.Interval12h: "720", domain.Interval1d: "1d", domain.Interval1w: "1w",
		},
	}
}

func (a *ascendexAdapter) Name() string { return "ascendex" }

func (a *ascendexAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

func (a *ascendexAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *ascendexAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *ascendexAdapter) TakerFee() decimal.Decimal { return takerFeeFor("ascendex") }
func (a *ascendexAdapter) MakerFee() decimal.Decimal { return makerFeeFor("ascendex") }
func (a *ascendexAdapter) MinRequestInterval() time.Duration { return minIntervalFor("ascendex") }

func (a *ascendexAdapter) signedHeaders(creds Credentials, path string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	prehash := ts + "+" + path
	sig := hmacB64SHA256(creds.APISecret, prehash)
	return map[string]string{
		"x-auth-key":       creds.APIKey,
		"x-auth-signature": sig,
		"x-auth-timestamp": ts,
		"Content-Type":     "application/json",
	}
}

func (a *ascendexAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/pro/v1/barhist?symbol=%s&interval=%s&n=%d", a.ToVenuePair(pair), a.ToVenueInterval(interval), limit)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Data struct {
				Ts string `json:"ts"`
				O  string `json:"o"`
				H  string `json:"h"`
				L  string `json:"l"`
				C  string `json:"c"`
				V  string `json:"v"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ascendex: decode barhist: %w", err)
	}
	out := make([]domain.Candle, 0, len(resp.Data))
	for _, row := range resp.Data {
		ms, _ := strconv.ParseInt(row.Data.Ts, 10, 64)
		out = append(out, domain.Candle{
			Timestamp: time.UnixMilli(ms),
			Open:      decOrZero(row.Data.O),
			High:      decOrZero(row.Data.H),
			Low:       decOrZero(row.Data.L),
			Close:     decOrZero(row.Data.C),
			Volume:    decOrZero(row.Data.V),
		})
	}
	return out, nil
}

func (a *ascendexAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/pro/v1/ticker?symbol=" + a.ToVenuePair(pair)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data struct {
			Close string `json:"close"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("ascendex: decode ticker: %w", err)
	}
	return decOrZero(resp.Data.Close), nil
}

func (a *ascendexAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/pro/v1/depth?symbol=" + a.ToVenuePair(pair)})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data struct {
			Data struct {
				Bids [][2]string `json:"bids"`
				Asks [][2]string `json:"asks"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("ascendex: decode depth: %w", err)
	}
	return domain.OrderBook{Bids: toLevels(resp.Data.Data.Bids), Asks: toLevels(resp.Data.Data.Asks)}, nil
}

func (a *ascendexAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	path := "/api/pro/v1/cash/balance"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path, Headers: a.signedHeaders(creds, "cash/balance")})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Asset     string `json:"asset"`
			Available string `json:"availableBalance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("ascendex: decode balance: %w", err)
	}
	for _, b := range resp.Data {
		if strings.EqualFold(b.Asset, currency) {
			return decOrZero(b.Available), nil
		}
	}
	return decimal.Zero, nil
}

func (a *ascendexAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"symbol":    a.ToVenuePair(pair),
		"orderType": "market",
		"side":      strings.ToLower(string(side)),
		"time":      time.Now().UnixMilli(),
	}
	if side == domain.SideBuy {
		order["orderQty"] = quoteAmount.String()
	} else {
		order["orderQty"] = baseQty.String()
	}
	body := mustJSON(order)
	resp, err := a.do(ctx, rawRequest{
		Method:  "POST",
		URL:     a.baseURL + "/api/pro/v1/cash/order",
		Body:    body,
		Headers: a.signedHeaders(creds, "cash/order"),
	})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("ascendex: decode order: %w", err)
	}
	return domain.Fill{OrderID: out.Data.OrderID, Liquidity: "taker"}, nil
}

func (a *ascendexAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *ascendexAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *ascendexAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
