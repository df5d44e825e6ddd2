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

// okxAdapter implements the OKX-family signing scheme (spec §4.1): an
// HMAC-SHA256 hex digest over timestamp+method+requestPath+body, sent with a
// passphrase header alongside the key and signature. bitget.go reuses this
// shape against its own host.
type okxAdapter struct {
	baseClient
	intervals intervalTable
}

func newOKXAdapter() *okxAdapter {
	return &okxAdapter{
		baseClient: newBaseClient("okx", "https://www.okx.com", minIntervalFor("okx"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1m", domain.Interval3m: "3m", domain.Interval5m: "5m",
			domain.Interval15m: "15m", domain.Interval30m: "30m", domain.Interval1h: "1H",
			domain.Interval2h: "2H", domain.Interval4h: "4H", domain.Interval6h: "6H",
			domain.Interval12h: "12H", domain.Interval1d: "1D", domain.Interval1w: "1W",
		},
	}
}

func (a *okxAdapter) Name() string { return "okx" }

func (a *okxAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

func (a *okxAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *okxAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *okxAdapter) TakerFee() decimal.Decimal { return takerFeeFor("okx") }
func (a *okxAdapter) MakerFee() decimal.Decimal { return makerFeeFor("okx") }
func (a *okxAdapter) MinRequestInterval() time.Duration { return minIntervalFor("okx") }

func (a *okxAdapter) signedHeaders(creds Credentials, method, path, body string) map[string]string {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	prehash := ts + method + path + body
	sig := hmacHexSHA256(creds.APISecret, prehash)
	return map[string]string{
		"OK-ACCESS-KEY":        creds.APIKey,
		"OK-ACCESS-SIGN":       sig,
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": creds.Passphrase,
		"Content-Type":         "application/json",
	}
}

func (a *okxAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d", a.ToVenuePair(pair), a.ToVenueInterval(interval), limit)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("okx: decode candles: %w", err)
	}
	out := make([]domain.Candle, 0, len(resp.Data))
	for _, r := range resp.Data {
		if len(r) < 6 {
			continue
		}
		ms, _ := strconv.ParseInt(r[0], 10, 64)
		out = append(out, domain.Candle{
			Timestamp: time.UnixMilli(ms),
			Open:      decOrZero(r[1]),
			High:      decOrZero(r[2]),
			Low:       decOrZero(r[3]),
			Close:     decOrZero(r[4]),
			Volume:    decOrZero(r[5]),
		})
	}
	return out, nil
}

func (a *okxAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	path := "/api/v5/market/ticker?instId=" + a.ToVenuePair(pair)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("okx: decode ticker: %w", err)
	}
	if len(resp.Data) == 0 {
		return decimal.Zero, fmt.Errorf("okx: empty ticker response")
	}
	return decOrZero(resp.Data[0].Last), nil
}

func (a *okxAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	path := "/api/v5/market/books?instId=" + a.ToVenuePair(pair) + "&sz=20"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Bids [][]string `json:"bids"`
			Asks [][]string `json:"asks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("okx: decode books: %w", err)
	}
	if len(resp.Data) == 0 {
		return domain.OrderBook{}, nil
	}
	var bids, asks [][2]string
	for _, r := range resp.Data[0].Bids {
		if len(r) >= 2 {
			bids = append(bids, [2]string{r[0], r[1]})
		}
	}
	for _, r := range resp.Data[0].Asks {
		if len(r) >= 2 {
			asks = append(asks, [2]string{r[0], r[1]})
		}
	}
	return domain.OrderBook{Bids: toLevels(bids), Asks: toLevels(asks)}, nil
}

func (a *okxAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	path := "/api/v5/account/balance?ccy=" + strings.ToUpper(currency)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path, Headers: a.signedHeaders(creds, "GET", path, "")})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Data []struct {
			Details []struct {
				Ccy     string `json:"ccy"`
				AvailBal string `json:"availBal"`
			} `json:"details"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("okx: decode balance: %w", err)
	}
	for _, d := range resp.Data {
		for _, det := range d.Details {
			if strings.EqualFold(det.Ccy, currency) {
				return decOrZero(det.AvailBal), nil
			}
		}
	}
	return decimal.Zero, nil
}

func (a *okxAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"instId":  a.ToVenuePair(pair),
		"tdMode":  "cash",
		"side":    strings.ToLower(string(side)),
		"ordType": "market",
	}
	if side == domain.SideBuy && !quoteAmount.IsZero() {
		order["sz"] = quoteAmount.String()
		order["tgtCcy"] = "quote_ccy"
	} else {
		order["sz"] = baseQty.String()
		order["tgtCcy"] = "base_ccy"
	}
	body := mustJSON([]map[string]interface{}{order})
	path := "/api/v5/trade/order"
	resp, err := a.do(ctx, rawRequest{
		Method:  "POST",
		URL:     a.baseURL + path,
		Body:    body,
		Headers: a.signedHeaders(creds, "POST", path, string(body)),
	})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		Data []struct {
			OrdID string `json:"ordId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("okx: decode order: %w", err)
	}
	orderID := ""
	if len(out.Data) > 0 {
		orderID = out.Data[0].OrdID
	}
	return domain.Fill{OrderID: orderID, Liquidity: "taker"}, nil
}

func (a *okxAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *okxAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *okxAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
