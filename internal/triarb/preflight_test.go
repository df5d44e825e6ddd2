package triarb

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// fakeAdapter implements exchange.Adapter with fixed balances/books, enough
// for the pre-flight checks to exercise without a network call.
type fakeAdapter struct {
	balance  decimal.Decimal
	books    orderBooks
	fee      decimal.Decimal
	balanceErr error
}

func (f *fakeAdapter) Name() string { return "fake" }
func (f *fakeAdapter) FetchCandles(context.Context, string, domain.Interval, int) ([]domain.Candle, error) {
	return nil, nil
}
func (f *fakeAdapter) FetchCurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeAdapter) FetchBalance(context.Context, exchange.Credentials, string) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balance, nil
}
func (f *fakeAdapter) FetchOrderBook(_ context.Context, pair string) (domain.OrderBook, error) {
	return f.books[pair], nil
}
func (f *fakeAdapter) ExecuteMarketBuy(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return domain.Fill{}, nil
}
func (f *fakeAdapter) ExecuteMarketSell(context.Context, exchange.Credentials, string, decimal.Decimal) (domain.Fill, error) {
	return domain.Fill{}, nil
}
func (f *fakeAdapter) TestConnection(context.Context, exchange.Credentials) error { return nil }
func (f *fakeAdapter) ToVenuePair(canonical string) string                       { return canonical }
func (f *fakeAdapter) FromVenuePair(venue string) string                         { return venue }
func (f *fakeAdapter) ToVenueInterval(domain.Interval) string                    { return "" }
func (f *fakeAdapter) TakerFee() decimal.Decimal                                 { return f.fee }
func (f *fakeAdapter) MakerFee() decimal.Decimal                                 { return f.fee }
func (f *fakeAdapter) MinRequestInterval() time.Duration                        { return 0 }

func testPath() domain.TriangularPath {
	return domain.TriangularPath{
		ID:    "test-path",
		Pairs: [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"},
		Steps: [3]domain.PathStep{
			{Pair: "BTCUSDT", Side: domain.StepBuy},
			{Pair: "BTCZAR", Side: domain.StepSell},
			{Pair: "USDTZAR", Side: domain.StepBuy},
		},
	}
}

func testBooks() orderBooks {
	return orderBooks{
		"BTCUSDT": {Asks: []domain.OrderBookLevel{level(50000)}},
		"BTCZAR":  {Bids: []domain.OrderBookLevel{level(910000)}},
		"USDTZAR": {Asks: []domain.OrderBookLevel{level(18)}},
	}
}

// TestRun_BoundaryScenario5 reproduces spec §8 boundary scenario 5's three
// pre-flight rejections.
func TestRun_BoundaryScenario5(t *testing.T) {
	adapter := &fakeAdapter{balance: decimal.NewFromInt(50), books: testBooks(), fee: decimal.NewFromFloat(0.001)}
	checker := NewCheckerWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	_, err := checker.Run(context.Background(), PreFlightRequest{
		Exchange: "valr", Path: testPath(), Amount: decimal.NewFromInt(100),
	})
	var apiErr domain.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeInsufficientBalance, apiErr.Code)

	adapter.balance = decimal.NewFromInt(10000)
	_, err = checker.Run(context.Background(), PreFlightRequest{
		Exchange: "valr", Path: testPath(), Amount: decimal.NewFromInt(5),
	})
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeAmountBelowMin, apiErr.Code)

	_, err = checker.Run(context.Background(), PreFlightRequest{
		Exchange: "valr", Path: testPath(), Amount: decimal.NewFromInt(100), DryRun: false, Confirmed: false,
	})
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeConfirmationRequired, apiErr.Code)
}

func TestRun_Success(t *testing.T) {
	adapter := &fakeAdapter{balance: decimal.NewFromInt(10000), books: testBooks(), fee: decimal.NewFromFloat(0.001)}
	checker := NewCheckerWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	res, err := checker.Run(context.Background(), PreFlightRequest{
		Exchange: "valr", Path: testPath(), Amount: decimal.NewFromInt(100), DryRun: true,
	})
	assert.NoError(t, err)
	assert.False(t, res.Opportunity.EndAmount.IsZero())
}

func TestRun_ProfitDecreasedWarning(t *testing.T) {
	adapter := &fakeAdapter{balance: decimal.NewFromInt(10000), books: testBooks(), fee: decimal.NewFromFloat(0.001)}
	checker := NewCheckerWithRegistry(func(string) (exchange.Adapter, error) { return adapter, nil })

	res, err := checker.Run(context.Background(), PreFlightRequest{
		Exchange: "valr", Path: testPath(), Amount: decimal.NewFromInt(100), DryRun: true,
		MinProfitThreshold: decimal.NewFromFloat(-10),
		ScannedProfitPct:   decimal.NewFromInt(100),
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
}
