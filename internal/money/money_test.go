package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercentChange(t *testing.T) {
	got := PercentChange(decimal.NewFromInt(100), decimal.NewFromInt(105))
	assert.True(t, decimal.NewFromInt(5).Equal(got))

	assert.True(t, PercentChange(decimal.Zero, decimal.NewFromInt(10)).IsZero())
}

func TestSnapDown(t *testing.T) {
	got := SnapDown(decimal.NewFromFloat(1.2345), decimal.NewFromFloat(0.01))
	assert.True(t, decimal.NewFromFloat(1.23).Equal(got))

	// step <= 0 is a no-op.
	got = SnapDown(decimal.NewFromFloat(1.2345), decimal.Zero)
	assert.True(t, decimal.NewFromFloat(1.2345).Equal(got))
}

func TestParse(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(12.5).Equal(Parse("12.5")))
	assert.True(t, Parse("not-a-number").IsZero())
	assert.True(t, Parse("").IsZero())
}
