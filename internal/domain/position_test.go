package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeExitPnL_BoundaryScenario3(t *testing.T) {
	p := Position{
		EntryQuantity: decimal.NewFromInt(10),
		EntryPrice:    decimal.NewFromInt(100),
		EntryValue:    decimal.NewFromInt(1000),
		EntryFee:      decimal.NewFromFloat(1),
		ExitQuantity:  decimal.NewFromInt(10),
		ExitPrice:     decimal.NewFromInt(102),
		ExitFee:       decimal.NewFromFloat(1.02),
	}
	p.ComputeExitPnL()

	assert.True(t, decimal.NewFromFloat(17.98).Equal(p.ExitPnL), "pnl = %s", p.ExitPnL)
	assert.True(t, decimal.NewFromFloat(1.798).Equal(p.ExitPnLPercent), "pnl_percent = %s", p.ExitPnLPercent)
}

func TestComputeExitPnL_ZeroEntryValue(t *testing.T) {
	p := Position{ExitQuantity: decimal.NewFromInt(1), ExitPrice: decimal.NewFromInt(10)}
	p.ComputeExitPnL()
	assert.True(t, p.ExitPnLPercent.IsZero())
}
