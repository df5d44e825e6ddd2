package triarb

import (
	"testing"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price float64) domain.OrderBookLevel {
	return domain.OrderBookLevel{Price: decimal.NewFromFloat(price), Size: decimal.NewFromInt(1)}
}

// TestComputeProfit_BoundaryScenario4 reproduces spec §8 boundary scenario 4
// exactly: USDT->BTC->ZAR->USDT at a 0.1% taker fee, 1000 USDT start, with
// the USDTZAR leg interpreted as a buy (spending ZAR to acquire USDT) per
// the convention fixed in DESIGN.md for the §9 open question.
func TestComputeProfit_BoundaryScenario4(t *testing.T) {
	path := domain.TriangularPath{
		ID:       "test-usdt-btc-zar",
		Pairs:    [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"},
		Sequence: "USDT->BTC->ZAR->USDT",
		Steps: [3]domain.PathStep{
			{Pair: "BTCUSDT", Side: domain.StepBuy},
			{Pair: "BTCZAR", Side: domain.StepSell},
			{Pair: "USDTZAR", Side: domain.StepBuy},
		},
	}
	books := orderBooks{
		"BTCUSDT": {Asks: []domain.OrderBookLevel{level(50000)}},
		"BTCZAR":  {Bids: []domain.OrderBookLevel{level(900000)}},
		"USDTZAR": {Asks: []domain.OrderBookLevel{level(18)}},
	}
	fee := decimal.NewFromFloat(0.001)
	start := decimal.NewFromInt(1000)

	opp, err := ComputeProfit(path, books, fee, start)
	require.NoError(t, err)
	require.Len(t, opp.Steps, 3)

	feeFactor := decimal.NewFromFloat(0.999)
	step1Out := start.Mul(feeFactor).Div(decimal.NewFromInt(50000))
	assert.True(t, step1Out.Equal(opp.Steps[0].OutputAmount), "step1 out=%s want=%s", opp.Steps[0].OutputAmount, step1Out)

	step2Out := step1Out.Mul(decimal.NewFromInt(900000)).Mul(feeFactor)
	assert.True(t, step2Out.Equal(opp.Steps[1].OutputAmount), "step2 out=%s want=%s", opp.Steps[1].OutputAmount, step2Out)

	step3Out := step2Out.Mul(feeFactor).Div(decimal.NewFromInt(18))
	assert.True(t, step3Out.Equal(opp.Steps[2].OutputAmount), "step3 out=%s want=%s", opp.Steps[2].OutputAmount, step3Out)

	assert.True(t, opp.EndAmount.Equal(step3Out))
	assert.True(t, opp.Profit.Equal(step3Out.Sub(start)))
}

func TestComputeProfit_MissingBookErrors(t *testing.T) {
	path := domain.TriangularPath{
		ID:    "incomplete",
		Pairs: [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"},
		Steps: [3]domain.PathStep{
			{Pair: "BTCUSDT", Side: domain.StepBuy},
			{Pair: "BTCZAR", Side: domain.StepSell},
			{Pair: "USDTZAR", Side: domain.StepBuy},
		},
	}
	_, err := ComputeProfit(path, orderBooks{}, decimal.NewFromFloat(0.001), decimal.NewFromInt(1000))
	assert.Error(t, err)
}

func TestRequiredPairs_Dedup(t *testing.T) {
	paths := []domain.TriangularPath{
		{Pairs: [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"}},
		{Pairs: [3]string{"ETHUSDT", "ETHZAR", "USDTZAR"}},
	}
	pairs := RequiredPairs(paths)
	assert.ElementsMatch(t, []string{"BTCUSDT", "BTCZAR", "USDTZAR", "ETHUSDT", "ETHZAR"}, pairs)
}
