package exchange

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// coinbaseAdapter authenticates with a short-lived RS256 JWT minted from the
// user's API key name and RSA private key, the same mechanism the teacher's
// broker_coinbase.go uses for Coinbase's Advanced Trade API.
type coinbaseAdapter struct {
	baseClient
	intervals intervalTable
}

func newCoinbaseAdapter() *coinbaseAdapter {
	return &coinbaseAdapter{
		baseClient: newBaseClient("coinbase", "https://api.coinbase.com", minIntervalFor("coinbase"), 10*time.Second),
		intervals: intervalTable{
			domain.Interval1m: "ONE_MINUTE", domain.Interval5m: "FIVE_MINUTE",
			domain.Interval15m: "FIFTEEN_MINUTE", domain.Interval30m: "THIRTY_MINUTE",
			domain.Interval1h: "ONE_HOUR", domain.Interval2h: "TWO_HOUR",
			domain.Interval6h: "SIX_HOUR", domain.Interval1d: "ONE_DAY",
		},
	}
}

func (a *coinbaseAdapter) Name() string { return "coinbase" }

func (a *coinbaseAdapter) ToVenuePair(canonical string) string {
	base, quote := splitPair(canonical)
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

func (a *coinbaseAdapter) FromVenuePair(venue string) string { return canonicalizePair(venue) }

func (a *coinbaseAdapter) ToVenueInterval(iv domain.Interval) string { return a.intervals.toVenue(iv) }
func (a *coinbaseAdapter) TakerFee() decimal.Decimal { return takerFeeFor("coinbase") }
func (a *coinbaseAdapter) MakerFee() decimal.Decimal { return makerFeeFor("coinbase") }
func (a *coinbaseAdapter) MinRequestInterval() time.Duration { return minIntervalFor("coinbase") }

// mintCoinbaseAdapterJWT mints a 25-second RS256 JWT scoped to the "retail_rest_api"
// audience, matching the teacher's mintCoinbaseJWT exactly (including its
// 5-second not-before skew and jti uuid).
func mintCoinbaseAdapterJWT(keyName, privatePEM string) (string, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return "", errors.New("coinbase: invalid private key (no PEM block)")
	}
	var priv *rsa.PrivateKey
	switch block.Type {
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", err
		}
		ok := false
		priv, ok = k.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("coinbase: not an RSA private key")
		}
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return "", err
		}
		priv = k
	default:
		return "", fmt.Errorf("coinbase: unsupported key type %s", block.Type)
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": keyName,
		"aud": "retail_rest_api",
		"iat": now.Unix(),
		"exp": now.Add(25 * time.Second).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
		"jti": uuid.New().String(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(priv)
}

func (a *coinbaseAdapter) authHeaders(creds Credentials) (map[string]string, error) {
	token, err := mintCoinbaseAdapterJWT(creds.APIKey, creds.APISecret)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
		"CB-ACCESS-KEY": creds.APIKey,
	}, nil
}

func (a *coinbaseAdapter) FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error) {
	if limit <= 0 || limit > 350 {
		limit = 350
	}
	end := time.Now().UTC()
	start := end.Add(-time.Duration(limit) * time.Hour)
	path := fmt.Sprintf("/api/v3/brokerage/products/%s/candles?start=%d&end=%d&granularity=%s&limit=%d",
		a.ToVenuePair(pair), start.Unix(), end.Unix(), a.ToVenueInterval(interval), limit)
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return nil, newVenueError(a.Name(), err)
	}
	var resp struct {
		Candles []struct {
			Start  string `json:"start"`
			Low    string `json:"low"`
			High   string `json:"high"`
			Open   string `json:"open"`
			Close  string `json:"close"`
			Volume string `json:"volume"`
		} `json:"candles"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coinbase: decode candles: %w", err)
	}
	out := make([]domain.Candle, 0, len(resp.Candles))
	for _, c := range resp.Candles {
		sec, _ := strconv.ParseInt(c.Start, 10, 64)
		out = append(out, domain.Candle{
			Timestamp: time.Unix(sec, 0),
			Open:      decOrZero(c.Open),
			High:      decOrZero(c.High),
			Low:       decOrZero(c.Low),
			Close:     decOrZero(c.Close),
			Volume:    decOrZero(c.Volume),
		})
	}
	return out, nil
}

func (a *coinbaseAdapter) FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v3/brokerage/products/" + a.ToVenuePair(pair)})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var j map[string]interface{}
	if err := json.Unmarshal(body, &j); err != nil {
		return decimal.Zero, fmt.Errorf("coinbase: decode product: %w", err)
	}
	for _, k := range []string{"price", "mid_market_price", "best_ask", "best_bid"} {
		if v, ok := j[k]; ok {
			d := decFromAny(v)
			if d.IsPositive() {
				return d, nil
			}
		}
	}
	return decimal.Zero, fmt.Errorf("coinbase: no usable price in product payload")
}

func (a *coinbaseAdapter) FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error) {
	path := "/api/v3/brokerage/product_book?product_id=" + a.ToVenuePair(pair) + "&limit=20"
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + path})
	if err != nil {
		return domain.OrderBook{}, newVenueError(a.Name(), err)
	}
	var resp struct {
		Pricebook struct {
			Bids []struct {
				Price string `json:"price"`
				Size  string `json:"size"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
				Size  string `json:"size"`
			} `json:"asks"`
		} `json:"pricebook"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("coinbase: decode product_book: %w", err)
	}
	var ob domain.OrderBook
	for _, b := range resp.Pricebook.Bids {
		ob.Bids = append(ob.Bids, domain.OrderBookLevel{Price: decOrZero(b.Price), Size: decOrZero(b.Size)})
	}
	for _, a2 := range resp.Pricebook.Asks {
		ob.Asks = append(ob.Asks, domain.OrderBookLevel{Price: decOrZero(a2.Price), Size: decOrZero(a2.Size)})
	}
	return ob, nil
}

func (a *coinbaseAdapter) FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error) {
	headers, err := a.authHeaders(creds)
	if err != nil {
		return decimal.Zero, err
	}
	body, err := a.do(ctx, rawRequest{Method: "GET", URL: a.baseURL + "/api/v3/brokerage/accounts", Headers: headers})
	if err != nil {
		return decimal.Zero, newVenueError(a.Name(), err)
	}
	var resp struct {
		Accounts []struct {
			Currency         string `json:"currency"`
			AvailableBalance struct {
				Value string `json:"value"`
			} `json:"available_balance"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("coinbase: decode accounts: %w", err)
	}
	for _, acc := range resp.Accounts {
		if strings.EqualFold(acc.Currency, currency) {
			return decOrZero(acc.AvailableBalance.Value), nil
		}
	}
	return decimal.Zero, nil
}

func (a *coinbaseAdapter) executeMarket(ctx context.Context, creds Credentials, pair string, side domain.OrderSide, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	headers, err := a.authHeaders(creds)
	if err != nil {
		return domain.Fill{}, err
	}
	marketConfig := map[string]interface{}{}
	if side == domain.SideBuy {
		marketConfig["quote_size"] = quoteAmount.String()
	} else {
		marketConfig["base_size"] = baseQty.String()
	}
	order := map[string]interface{}{
		"client_order_id": uuid.New().String(),
		"product_id":      a.ToVenuePair(pair),
		"side":            string(side),
		"order_configuration": map[string]interface{}{
			"market_market_ioc": marketConfig,
		},
	}
	body := mustJSON(order)
	resp, err := a.do(ctx, rawRequest{Method: "POST", URL: a.baseURL + "/api/v3/brokerage/orders", Body: body, Headers: headers})
	if err != nil {
		return domain.Fill{}, newVenueError(a.Name(), err)
	}
	var out struct {
		SuccessResponse struct {
			OrderID string `json:"order_id"`
		} `json:"success_response"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Fill{}, fmt.Errorf("coinbase: decode order: %w", err)
	}
	return domain.Fill{OrderID: out.SuccessResponse.OrderID, Liquidity: "taker"}, nil
}

func (a *coinbaseAdapter) ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideBuy, quoteAmount, decimal.Zero)
}

func (a *coinbaseAdapter) ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	return a.executeMarket(ctx, creds, pair, domain.SideSell, decimal.Zero, baseQuantity)
}

func (a *coinbaseAdapter) TestConnection(ctx context.Context, creds Credentials) error {
	_, err := a.FetchBalance(ctx, creds, "USD")
	return err
}
