package momentum

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/tradebackend/internal/config"
	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCandleAdapter implements exchange.Adapter, returning a fixed candle
// list regardless of pair/interval, enough to drive evaluateAsset without a
// network call.
type fakeCandleAdapter struct {
	candles []domain.Candle
	err     error
}

func (f *fakeCandleAdapter) Name() string { return "fake" }
func (f *fakeCandleAdapter) FetchCandles(context.Context, string, domain.Interval, int) ([]domain.Candle, error) {
	return f.candles, f.err
}
func (f *fakeCandleAdapter) FetchCurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeCandleAdapter) FetchBalance(context.Context, exchange.Credentials, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeCandleAdapter) FetchOrderBook(context.Context, string) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (f *fakeCandleAdapter) ExecuteMarketBuy(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return domain.Fill{}, nil
}
func (f *fakeCandleAdapter) ExecuteMarketSell(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return domain.Fill{}, nil
}
func (f *fakeCandleAdapter) TestConnection(context.Context, exchange.Credentials) error { return nil }
func (f *fakeCandleAdapter) ToVenuePair(canonical string) string                        { return canonical }
func (f *fakeCandleAdapter) FromVenuePair(venue string) string                          { return venue }
func (f *fakeCandleAdapter) ToVenueInterval(domain.Interval) string                     { return "" }
func (f *fakeCandleAdapter) TakerFee() decimal.Decimal                                  { return decimal.Zero }
func (f *fakeCandleAdapter) MakerFee() decimal.Decimal                                  { return decimal.Zero }
func (f *fakeCandleAdapter) MinRequestInterval() time.Duration                          { return 0 }

func makeCandles(n int, lastClose float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{Close: decimal.NewFromFloat(50)}
	}
	out[n-1].Close = decimal.NewFromFloat(lastClose)
	return out
}

func TestEvaluateAsset_InsufficientCandlesSkipsWithoutError(t *testing.T) {
	adapter := &fakeCandleAdapter{candles: makeCandles(5, 51)}
	w := &Worker{
		adapters: func(string) (exchange.Adapter, error) { return adapter, nil },
		cfg:      config.Config{MinCandlesForSignal: 100, MinCandlesIndicators: 50},
	}
	s := domain.Strategy{Exchange: "valr", Timeframe: domain.Interval1h, EntryLogic: domain.EntryLogicAny1}

	result := w.evaluateAsset(context.Background(), s, "BTC")
	assert.NoError(t, result.err)
	assert.False(t, result.fired)
}

func TestEvaluateAsset_UniversalCandleSourceOverridesExchange(t *testing.T) {
	var seenExchange string
	w := &Worker{
		adapters: func(name string) (exchange.Adapter, error) {
			seenExchange = name
			return &fakeCandleAdapter{candles: makeCandles(5, 51)}, nil
		},
		cfg: config.Config{
			MinCandlesForSignal:     100,
			MinCandlesIndicators:    50,
			UseUniversalCandleSource: true,
			CandleSourceExchange:     "binance",
		},
	}
	s := domain.Strategy{Exchange: "valr", Timeframe: domain.Interval1h}

	w.evaluateAsset(context.Background(), s, "BTC")
	assert.Equal(t, "binance", seenExchange)
}

func TestEvaluateAsset_PropagatesAdapterError(t *testing.T) {
	adapter := &fakeCandleAdapter{err: assertError{"boom"}}
	w := &Worker{
		adapters: func(string) (exchange.Adapter, error) { return adapter, nil },
		cfg:      config.Config{MinCandlesForSignal: 100, MinCandlesIndicators: 50},
	}
	s := domain.Strategy{Exchange: "valr", Timeframe: domain.Interval1h}

	result := w.evaluateAsset(context.Background(), s, "BTC")
	require.Error(t, result.err)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
