// Package money centralizes decimal arithmetic for quote/base amounts.
//
// Exchange responses arrive as strings; per spec.md §4.1/§9 we parse straight
// into decimal.Decimal and never round-trip through float64 for anything that
// represents money or order quantity. Only display/logging formats back to a
// string at the venue boundary.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical zero value, exported so callers can use money.Zero
// instead of reaching for decimal.Zero directly.
var Zero = decimal.Zero

// Parse converts an exchange-supplied numeric string into a Decimal. Invalid
// or empty input yields zero rather than an error: venues occasionally omit
// optional numeric fields (e.g. commission on a maker fill), and the caller's
// fallback logic (fee-rate-percent estimation) takes over from there.
func Parse(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromFloat is used only at the edges (venue JSON that returns bare numbers
// instead of numeric strings, e.g. some public ticker endpoints). Internal
// arithmetic must never go through float64.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Pct returns d * pct / 100.
func Pct(d decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(decimal.NewFromInt(100))
}

// PercentChange returns (to - from) / from * 100, the canonical pnl_percent
// / price-move calculation used throughout the exit and triarb logic.
func PercentChange(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(decimal.NewFromInt(100))
}

// SnapDown floors x to the nearest multiple of step (step<=0 is a no-op),
// generalizing the teacher's snapDownBinance helper (broker_binance.go) to a
// decimal-safe, venue-agnostic form. No adapter calls it; orders are submitted
// without exchange-filter snapping.
func SnapDown(x, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return x
	}
	n := x.Div(step).Floor()
	return n.Mul(step)
}
