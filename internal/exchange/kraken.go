package exchange

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// krakenAdapter signs private requests with Kraken's scheme (spec §4.1):
// HMAC-SHA512, base64-encoded, over path + SHA256(nonce + POST body), keyed
// by the base64-decoded API secret.
type krakenAdapter struct {
	baseClient
	intervals intervalTable
}

func newKrakenAdapter() *krakenAdapter {
	return &krakenAdapter{
		baseClient: newBaseClient("kraken", "https://api.kraken.com", minIntervalFor("kraken"), 15*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "1", domain.Interval5m: "5", domain.Interval15m: "15",
			domain.Interval30m: "30", domain.Interval1h: "60", domain.Interval4h: "240",
			domain.Interval1d: "1440", domain.Interval1w: "10080",
		},
	}
}

func (a *krakenAdapter) Name() string { return "kraken" }

func (a *krakenAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (a *krakenAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *krakenAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *krakenAdapter) TakerFee() decimal.Decimal { return takerFeeFor("kraken") }
func (a *krakenAdapter) MakerFee() decimal.Decimal { return makerFeeFor("kraken") }
func (a *krakenAdapter) MinRequestInterval() time.Duration { return minIntervalFor("kraken") }

// sign implements Kraken's message-signature algorithm: base64-decode the
// secret, HMAC-SHA512 it over (path + SHA256(nonce + urlencoded-body)).
func (a *krakenAdapter) sign(secretB64, path, nonce, body string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return "", fmt.Errorf("kraken: decode secret: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(nonce + body))
	digest := h.Sum(nil)
	msg := append([]byte(path), digest...)
	return hmacB64SHA512(secret, msg), nil
}

func (a *krakenAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("pair", a.ToVenuePair(pair))
	q.Set("interval", a.ToVenueInterval(interval))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/0/public/OHLC?" + q.Encode()})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
		Error  []string                   `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kraken: decode ohlc: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken: %s", strings.Join(resp.Error, "; "))
	}
	var rows [][]interface{}
	for k, v := range resp.Result {
		if k == "last" {
			continue
		}
		if err := json.Unmarshal(v, &rows); err != nil {
			continue
		}
		break
	}
	out := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 7 {
			continue
		}
		ts, _ := r[0].(float64)
		out = append(out, domain.Candle{
			Timestamp: time.Unix(int64(ts), 0),
			Open:      decFromAny(r[1]),
			High:      decFromAny(r[2]),
			Low:       decFromAny(r[3]),
			Close:     decFromAny(r[4]),
			Volume:    decFromAny(r[6]),
		})
	}
	if len(out) > limit && limit > 0 {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (a *krakenAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("pair", a.ToVenuePair(pair))
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/0/public/Ticker?" + q.Encode()})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result map[string]struct {
			C []string `json:"c"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("kraken: decode ticker: %w", err)
	}
	for _, v := range resp.Result {
		if len(v.C) > 0 {
			return decOrZero(v.C[0]), nil
		}
	}
	return decimal.Zero, fmt.Errorf("kraken: empty ticker response")
}

func (a *krakenAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	q := url.Values{}
	q.Set("pair", a.ToVenuePair(pair))
	q.Set("count", "20")
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/0/public/Depth?" + q.Encode()})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result map[string]struct {
			Bids [][]interface{} `json:"bids"`
			Asks [][]interface{} `json:"asks"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kraken: decode depth: %w", err)
	}
	for _, v := range resp.Result {
		var bids, asks [][2]string
		for _, r := range v.Bids {
			if len(r) >= 2 {
				bids = append(bids, [2]string{fmt.Sprint(r[0]), fmt.Sprint(r[1])})
			}
		}
		for _, r := range v.Asks {
			if len(r) >= 2 {
				asks = append(asks, [2]string{fmt.Sprint(r[0]), fmt.Sprint(r[1])})
			}
		}
		return domain.OrderBook{Bids: toLevels(bids), Asks: toLevels(asks)}, nil
	}
	return domain.OrderBook{}, nil
}

func (a *krakenAdapter) privateCall(ctx context.Context, creds Credentials, path string, form url.Values) ([]byte, error) {
	nonce := strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
	form.Set("nonce", nonce)
	encoded := form.Encode()
	sig, err := a.sign(creds.APISecret, path, nonce, encoded)
	if err != nil {
		return nil, err
	}
	return a.do(ctx, rawRequest{
		Method: "POST",
		URL:    a.baseURL + path,
		Body:   []byte(encoded),
		Headers: map[string]string{
			"API-Key":      creds.APIKey,
			"API-Sign":     sig,
			"Content-Type": "application/x-www-form-urlencoded",
		},
	})
}

func (a *krakenAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	body, err := a.privateCall(ctx, creds, "/0/private/Balance", url.Values{})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result map[string]string `json:"result"`
		Error  []string          `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("kraken: decode balance: %w", err)
	}
	if len(resp.Error) > 0 {
		return decimal.Zero, fmt.Errorf("kraken: %s", strings.Join(resp.Error, "; "))
	}
	for k, v := range resp.Result {
		if strings.EqualFold(k, currency) || strings.EqualFold(k, "Z"+currency) || strings.EqualFold(k, "X"+currency) {
			return decOrZero(v), nil
		}
	}
	return decimal.Zero, nil
}

func (a *krakenAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	form := url.Values{}
	form.Set("pair", a.ToVenuePair(pair))
	form.Set("type", strings.ToLower(string(side)))
	form.Set("ordertype", "market")
	if !baseQty.IsZero() {
		form.Set("volume", baseQty.String())
	} else {
		// Kraken market orders require a base-asset volume; ExecuteMarketBuy
		// converts its quote amount at the last price before calling here.
		form.Set("volume", quoteAmount.String())
	}
	body, err := a.privateCall(ctx, creds, "/0/private/AddOrder", form)
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Result struct {
			TxID []string `json:"txid"`
		} `json:"result"`
		Error []string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Fill{}, fmt.Errorf("kraken: decode addorder: %w", err)
	}
	if len(resp.Error) > 0 {
		return domain.Fill{}, fmt.Errorf("kraken: %s", strings.Join(resp.Error, "; "))
	}
	orderID := ""
	if len(resp.Result.TxID) > 0 {
		orderID = resp.Result.TxID[0]
	}
	return domain.Fill{OrderID: orderID, Liquidity: "taker"}, nil
}

func (a *krakenAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	price, err := a.FetchCurrentPrice(ctx, pair)
	if err != nil {
		return domain.Fill{}, err
	}
	if price.IsZero() {
		return domain.Fill{}, fmt.Errorf("kraken: cannot size order, price is zero")
	}
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, quoteAmount.Div(price))
}

func (a *krakenAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *krakenAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "ZUSD")
	return err
}
