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

// bybitAdapter shares Binance's "HMAC-SHA256 hex over the query string"
// family (spec §4.1) against Bybit's v5 unified-account REST surface.
type bybitAdapter struct {
	baseClient
	intervals intervalTable
}

func newBybitAdapter() *bybitAdapter {
	return &bybitAdapter{
		baseClient: newBaseClient("bybit", "https://api.bybit.com", minIntervalFor("bybit"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1", domain.Interval3m: "3", domain.Interval5m: "5",
			domain.Interval15m: "15", domain.Interval30m: "30", domain.Interval1h: "60",
			domain.Interval2h: "120", domain.Interval4h: "240", domain.Interval6h: "360",
			domain.Interval12h: "720", domain.Interval1d: "D", domain.Interval1w: "W",
		},
	}
}

func (a *bybitAdapter) Name() string { return "bybit" }

func (a *bybitAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *bybitAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *bybitAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *bybitAdapter) TakerFee() decimal.Decimal { return takerFeeFor("bybit") }
func (a *bybitAdapter) MakerFee() decimal.Decimal { return makerFeeFor("bybit") }
func (a *bybitAdapter) MinRequestInterval() time.Duration { return minIntervalFor("bybit") }

func (a *bybitAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", a.ToVenuePair(pair))
	q.Set("interval", a.ToVenueInterval(interval))
	q.Set("limit", strconv.Itoa(limit))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/v5/market/kline?" + q.Encode()})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result struct {
			List [][]string `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bybit: decode kline: %w", err)
	}
	out := make([]domain.Candle, 0, len(resp.Result.List))
	for _, r := range resp.Result.List {
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

func (a *bybitAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", a.ToVenuePair(pair))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/v5/market/tickers?" + q.Encode()})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result struct {
			List []struct {
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("bybit: decode tickers: %w", err)
	}
	if len(resp.Result.List) == 0 {
		return decimal.Zero, fmt.Errorf("bybit: empty ticker response")
	}
	return decOrZero(resp.Result.List[0].LastPrice), nil
}

func (a *bybitAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", a.ToVenuePair(pair))
	q.Set("limit", "20")
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/v5/market/orderbook?" + q.Encode()})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result struct {
			Bids [][2]string `json:"b"`
			Asks [][2]string `json:"a"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("bybit: decode orderbook: %w", err)
	}
	return domain.OrderBook{Bids: toLevels(resp.Result.Bids), Asks: toLevels(resp.Result.Asks)}, nil
}

func (a *bybitAdapter) signedHeaders(creds Credentials, payload string) map[string]string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	recvWindow := "5000"
	prehash := ts + creds.APIKey + recvWindow + payload
	sig := hmacHexSHA256(creds.APISecret, prehash)
	return map[string]string{
		"X-BAPI-API-KEY":     creds.APIKey,
		"X-BAPI-TIMESTAMP":   ts,
		"X-BAPI-RECV-WINDOW": recvWindow,
		"X-BAPI-SIGN":        sig,
		"Content-Type":       "application/json",
	}
}

func (a *bybitAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("accountType", "UNIFIED")
	q.Set("coin", strings.ToUpper(currency))
	body, err := a.do(ctx, rawRequest{
		Method:  "GET",
		URL:     a.baseURL + "/v5/account/wallet-balance?" + q.Encode(),
		Headers: a.signedHeaders(creds, q.Encode()),
	})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result struct {
			List []struct {
				Coin []struct {
					Coin          string `json:"coin"`
					WalletBalance string `json:"walletBalance"`
				} `json:"coin"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("bybit: decode wallet-balance: %w", err)
	}
	for _, acct := range resp.Result.List {
		for _, c := range acct.Coin {
			if strings.EqualFold(c.Coin, currency) {
				return decOrZero(c.WalletBalance), nil
			}
		}
	}
	return decimal.Zero, nil
}

func (a *bybitAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	order := map[string]interface{}{
		"category":  "spot",
		"symbol":    a.ToVenuePair(pair),
		"side":      strings.Title(strings.ToLower(string(side))),
		"orderType": "Market",
	}
	if !quoteAmount.IsZero() {
		order["qty"] = quoteAmount.String()
		order["marketUnit"] = "quoteCoin"
	} else {
		order["qty"] = baseQty.String()
		order["marketUnit"] = "baseCoin"
	}
	body := mustJSON(order)
	resp, err := a.do(ctx, rawRequest{
		Method:  "POST",
		URL:     a.baseURL + "/v5/order/create",
		Body:    body,
		Headers: a.signedHeaders(creds, string(body)),
	})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		Result struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("bybit: decode order: %w", err)
	}
	// Bybit's create-order response carries no fill data; the executor layer
	// estimates fill price/qty/fee from the current price and taker fee.
	return domain.Fill{OrderID: out.Result.OrderID, Liquidity: "taker"}, nil
}

func (a *bybitAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *bybitAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *bybitAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USDT")
	return err
}
