package domain

import "github.com/shopspring/decimal"

// StepSide is buy or sell, reusing OrderSide's values in lowercase display
// form per spec §3's TriangularPath.steps[] shape.
type StepSide string

const (
	StepBuy  StepSide = "buy"
	StepSell StepSide = "sell"
)

// PathStep is one leg of a triangular path (spec §3).
type PathStep struct {
	Pair string
	Side StepSide
}

// TriangularPath is a compile-time-constant 3-leg cycle, keyed by exchange
// and organized into named sets (spec §3, e.g. "SET_1_ETH_FOCUS").
type TriangularPath struct {
	ID       string
	Exchange string
	Set      string
	Pairs    [3]string
	Sequence string // display form, e.g. "USDT->BTC->ZAR->USDT"
	Steps    [3]PathStep
}

// OpportunityStep records one leg's input/output/price/fee for audit (spec §3).
type OpportunityStep struct {
	Pair         string
	Side         StepSide
	InputAmount  decimal.Decimal
	OutputAmount decimal.Decimal
	Price        decimal.Decimal
	Fee          decimal.Decimal
}

// Opportunity is a transient scan result (spec §3).
type Opportunity struct {
	PathID        string
	StartAmount   decimal.Decimal
	EndAmount     decimal.Decimal
	Profit        decimal.Decimal
	ProfitPercent decimal.Decimal
	TotalFees     decimal.Decimal
	Steps         []OpportunityStep
}
