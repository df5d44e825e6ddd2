package executor

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderAdapter implements exchange.Adapter, returning a caller-supplied
// fill from ExecuteMarketBuy/Sell and a fixed current price/taker fee, enough
// to drive OrderExecutor.Buy/Sell and normalizeFill without a network call.
type fakeOrderAdapter struct {
	buyFill  domain.Fill
	sellFill domain.Fill
	price    decimal.Decimal
	fee      decimal.Decimal
	err      error
}

func (f *fakeOrderAdapter) Name() string { return "fake" }
func (f *fakeOrderAdapter) FetchCandles(context.Context, string, domain.Interval, int) ([]domain.Candle, error) {
	return nil, nil
}
func (f *fakeOrderAdapter) FetchCurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return f.price, nil
}
func (f *fakeOrderAdapter) FetchBalance(context.Context, exchange.Credentials, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeOrderAdapter) FetchOrderBook(context.Context, string) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (f *fakeOrderAdapter) ExecuteMarketBuy(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return f.buyFill, f.err
}
func (f *fakeOrderAdapter) ExecuteMarketSell(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return f.sellFill, f.err
}
func (f *fakeOrderAdapter) TestConnection(context.Context, exchange.Credentials) error { return nil }
func (f *fakeOrderAdapter) ToVenuePair(canonical string) string                        { return canonical }
func (f *fakeOrderAdapter) FromVenuePair(venue string) string                          { return venue }
func (f *fakeOrderAdapter) ToVenueInterval(domain.Interval) string                     { return "" }
func (f *fakeOrderAdapter) TakerFee() decimal.Decimal                                  { return f.fee }
func (f *fakeOrderAdapter) MakerFee() decimal.Decimal                                  { return f.fee }
func (f *fakeOrderAdapter) MinRequestInterval() time.Duration                          { return 0 }

func TestBuy_BackfillsZeroValuedFill(t *testing.T) {
	adapter := &fakeOrderAdapter{
		buyFill: domain.Fill{OrderID: "o1"},
		price:   decimal.NewFromFloat(100),
		fee:     decimal.NewFromFloat(0.001),
	}
	e := NewWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	fill, err := e.Buy(context.Background(), "valr", exchange.Credentials{}, "BTCUSDT", decimal.NewFromInt(1000))
	require.NoError(t, err)

	assert.Equal(t, "o1", fill.OrderID)
	assert.True(t, fill.ExecutedPrice.Equal(decimal.NewFromFloat(100)), "price")
	assert.True(t, fill.ExecutedQty.Equal(decimal.NewFromInt(10)), "qty")
	assert.True(t, fill.ExecutedValue.Equal(decimal.NewFromInt(1000)), "value")
	assert.True(t, fill.Fee.Equal(decimal.NewFromInt(1)), "fee")
}

func TestSell_BackfillsZeroValuedFill(t *testing.T) {
	adapter := &fakeOrderAdapter{
		sellFill: domain.Fill{OrderID: "o2"},
		price:    decimal.NewFromFloat(50),
		fee:      decimal.NewFromFloat(0.002),
	}
	e := NewWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	fill, err := e.Sell(context.Background(), "luno", exchange.Credentials{}, "ETHZAR", decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.True(t, fill.ExecutedPrice.Equal(decimal.NewFromFloat(50)), "price")
	assert.True(t, fill.ExecutedQty.Equal(decimal.NewFromInt(2)), "qty")
	assert.True(t, fill.ExecutedValue.Equal(decimal.NewFromInt(100)), "value")
	assert.True(t, fill.Fee.Equal(decimal.NewFromFloat(0.2)), "fee")
}

func TestBuy_LeavesAlreadyPopulatedFillUntouched(t *testing.T) {
	want := domain.Fill{
		OrderID:       "o3",
		ExecutedPrice: decimal.NewFromFloat(123.45),
		ExecutedQty:   decimal.NewFromFloat(8.1),
		ExecutedValue: decimal.NewFromFloat(999.9),
		Fee:           decimal.NewFromFloat(0.5),
		Liquidity:     "taker",
	}
	adapter := &fakeOrderAdapter{
		buyFill: want,
		// A price/fee that would produce very different numbers if normalizeFill
		// mistakenly recomputed them anyway.
		price: decimal.NewFromFloat(1),
		fee:   decimal.NewFromFloat(1),
	}
	e := NewWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	fill, err := e.Buy(context.Background(), "binance", exchange.Credentials{}, "BTCUSDT", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, want, fill)
}

func TestBuy_PropagatesAdapterError(t *testing.T) {
	adapter := &fakeOrderAdapter{err: assertError{"boom"}}
	e := NewWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	_, err := e.Buy(context.Background(), "valr", exchange.Credentials{}, "BTCUSDT", decimal.NewFromInt(1000))
	require.Error(t, err)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
