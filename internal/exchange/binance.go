package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// binanceAdapter signs requests the way the teacher's binance_broker.go does:
// an HMAC-SHA256 hex digest over the query string, appended as a "signature"
// parameter (spec §4.1's "Binance family" scheme). bybit has its own type
// (bybitAdapter), which signs into request headers instead.
type binanceAdapter struct {
	baseClient
	intervals intervalTable
}

func newBinanceAdapter() *binanceAdapter {
	return &binanceAdapter{
		baseClient: newBaseClient("binance", "https://api.binance.com", minIntervalFor("binance"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1m", domain.Interval3m: "3m", domain.Interval5m: "5m",
			domain.Interval15m: "15m", domain.Interval30m: "30m", domain.Interval1h: "1h",
			domain.Interval2h: "2h", domain.Interval4h: "4h", domain.Interval6h: "6h",
			domain.Interval12h: "12h", domain.Interval1d: "1d", domain.Interval1w: "1w",
		},
	}
}

func (a *binanceAdapter) Name() string { return "binance" }

func (a *binanceAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *binanceAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *binanceAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }

func (a *binanceAdapter) TakerFee() decimal.Decimal { return takerFeeFor("binance") }
func (a *binanceAdapter) MakerFee() decimal.Decimal { return makerFeeFor("binance") }
func (a *binanceAdapter) MinRequestInterval() time.Duration { return minIntervalFor("binance") }

func (a *binanceAdapter) sign(secret string, q url.Values) string {
	return hmacHexSHA256(secret, urlEncodeQuery(q))
}

func (a *binanceAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", a.ToVenuePair(pair))
	q.Set("interval", a.ToVenueInterval(interval))
	q.Set("limit", strconv.Itoa(limit))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v3/klines?" + q.Encode()})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var rows [][]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %w", err)
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		ts, _ := r[0].(float64)
		out = append(out, domain.Candle{
			Timestamp: time.UnixMilli(int64(ts)),
			Open:      decFromAny(r[1]),
			High:      decFromAny(r[2]),
			Low:       decFromAny(r[3]),
			Close:     decFromAny(r[4]),
			Volume:    decFromAny(r[5]),
		})
	}
	return out, nil
}

func (a *binanceAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", a.ToVenuePair(pair))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v3/ticker/price?" + q.Encode()})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("binance: decode ticker: %w", err)
	}
	return decOrZero(resp.Price), nil
}

func (a *binanceAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", a.ToVenuePair(pair))
	q.Set("limit", "20")
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v3/depth?" + q.Encode()})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("binance: decode depth: %w", err)
	}
	return domain.OrderBook{Bids: toLevels(resp.Bids), Asks: toLevels(resp.Asks)}, nil
}

func toLevels(rows [][2]string) []domain.OrderBookLevel {
	out := make([]domain.OrderBookLevel, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.OrderBookLevel{Price: decOrZero(r[0]), Size: decOrZero(r[1])})
	}
	return out
}

func (a *binanceAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("signature", a.sign(creds.APISecret, q))
	body, err := a.do(ctx, rawRequest{
		Method:  "GET",
		URL:     a.baseURL + "/api/v3/account?" + q.Encode(),
		Headers: map[string]string{"X-MBX-APIKEY": creds.APIKey},
	})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("binance: decode account: %w", err)
	}
	for _, b := range resp.Balances {
		if strings.EqualFold(b.Asset, currency) {
			return decOrZero(b.Free), nil
		}
	}
	return decimal.Zero, nil
}

func (a *binanceAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	q := url.Values{}
	q.Set("symbol", a.ToVenuePair(pair))
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	if !quoteAmount.IsZero() {
		q.Set("quoteOrderQty", quoteAmount.String())
	} else {
		q.Set("quantity", baseQty.String())
	}
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("signature", a.sign(creds.APISecret, q))
	body, err := a.do(ctx, rawRequest{
		Method:  "POST",
		URL:     a.baseURL + "/api/v3/order?" + q.Encode(),
		Headers: map[string]string{"X-MBX-APIKEY": creds.APIKey},
	})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		OrderID             int64  `json:"orderId"`
		ExecutedQty         string `json:"executedQty"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
		Fills               []struct {
			Price       string `json:"price"`
			Qty         string `json:"qty"`
			Commission  string `json:"commission"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Fill{}, fmt.Errorf("binance: decode order: %w", err)
	}
	execQty := decOrZero(resp.ExecutedQty)
	execValue := decOrZero(resp.CummulativeQuoteQty)
	fee := decimal.Zero
	for _, f := range resp.Fills {
		fee = fee.Add(decOrZero(f.Commission))
	}
	price := decimal.Zero
	if !execQty.IsZero() {
		price = execValue.Div(execQty)
	}
	return domain.Fill{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ExecutedPrice: price,
		ExecutedQty:   execQty,
		ExecutedValue: execValue,
		Fee:           fee,
		Liquidity:     "taker",
	}, nil
}

func (a *binanceAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *binanceAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *binanceAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
