package triarb

import (
	"context"
	"strings"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/shopspring/decimal"
)

// feeEstimateRate backs estimated_fees = amount * 0.002 * 3 (spec §4.6 step 1):
// three legs, each assumed at a conservative 0.2% taker fee.
var feeEstimateRate = decimal.NewFromFloat(0.002)

// minTradeAmount is the floor below which an execute request is rejected
// regardless of portfolio_percent/max_trade_amount (spec §4.6 step 3).
var minTradeAmount = decimal.NewFromInt(10)

// PreFlightRequest bundles everything the four ordered checks need.
type PreFlightRequest struct {
	Exchange            string
	Path                domain.TriangularPath
	Amount              decimal.Decimal
	Credentials         exchange.Credentials
	DryRun              bool
	Confirmed           bool
	MinProfitThreshold  decimal.Decimal
	MaxTradeAmount      decimal.Decimal // zero means unset
	PortfolioPercent    decimal.Decimal // zero means unset
	ScannedProfitPct    decimal.Decimal // profit percent at scan time, for the decrease warning
}

// PreFlightResult carries the re-priced opportunity and any non-fatal
// warnings alongside a pass/fail outcome.
type PreFlightResult struct {
	Opportunity domain.Opportunity
	Warnings    []string
}

// firstLegCurrency returns the currency Amount is denominated in: the
// opposite side of whatever the first leg buys/sells (spec §4.6 step 1,
// "fetch the base currency of the first leg").
func firstLegCurrency(path domain.TriangularPath) string {
	step := path.Steps[0]
	base, quote := splitCanonicalPair(step.Pair)
	if step.Side == domain.StepBuy {
		return quote // spending quote currency to acquire base
	}
	return base // spending base currency, selling it for quote
}

func splitCanonicalPair(pair string) (base, quote string) {
	// Canonical pairs are concatenated uppercase (spec GLOSSARY); known quote
	// suffixes are tried longest-first, mirroring the exchange package's
	// splitPair that the adapters' ToVenuePair uses.
	for _, q := range []string{"USDT", "USDC", "ZAR", "BTC", "ETH", "EUR", "USD"} {
		if strings.HasSuffix(pair, q) && len(pair) > len(q) {
			return pair[:len(pair)-len(q)], q
		}
	}
	return pair, ""
}

// Checker runs the four ordered pre-flight checks (spec §4.6).
type Checker struct {
	registry func(exchangeName string) (exchange.Adapter, error)
}

// NewChecker builds a Checker backed by the real exchange registry.
func NewChecker() *Checker {
	return &Checker{registry: exchange.New}
}

// NewCheckerWithRegistry lets tests inject a fake adapter lookup.
func NewCheckerWithRegistry(registry func(string) (exchange.Adapter, error)) *Checker {
	return &Checker{registry: registry}
}

// Run executes the four checks in order, returning the first failure as a
// domain.APIError, or the re-priced opportunity plus warnings on success.
func (c *Checker) Run(ctx context.Context, req PreFlightRequest) (PreFlightResult, error) {
	adapter, err := c.registry(req.Exchange)
	if err != nil {
		return PreFlightResult{}, err
	}

	// Step 1: balance.
	currency := firstLegCurrency(req.Path)
	balance, err := adapter.FetchBalance(ctx, req.Credentials, currency)
	if err != nil {
		return PreFlightResult{}, err
	}
	estimatedFees := req.Amount.Mul(feeEstimateRate).Mul(decimal.NewFromInt(3))
	if balance.LessThan(req.Amount.Add(estimatedFees)) {
		return PreFlightResult{}, domain.NewAPIError(domain.CodeInsufficientBalance,
			"balance "+balance.String()+" below required "+req.Amount.Add(estimatedFees).String()+" "+currency)
	}

	// Step 2: re-priced profitability.
	books := orderBooks{}
	for _, pair := range req.Path.Pairs {
		ob, err := adapter.FetchOrderBook(ctx, pair)
		if err != nil {
			return PreFlightResult{}, err
		}
		books[pair] = ob
	}
	opp, err := ComputeProfit(req.Path, books, adapter.TakerFee(), req.Amount)
	if err != nil {
		return PreFlightResult{}, err
	}
	if opp.ProfitPercent.LessThan(req.MinProfitThreshold) {
		return PreFlightResult{}, domain.NewAPIError(domain.CodeProfitBelowThreshold,
			"current profit "+opp.ProfitPercent.String()+"% below threshold "+req.MinProfitThreshold.String()+"%")
	}
	var warnings []string
	if opp.ProfitPercent.LessThan(req.ScannedProfitPct) {
		warnings = append(warnings, "profit decreased since scan: "+req.ScannedProfitPct.String()+"% -> "+opp.ProfitPercent.String()+"%")
	}

	// Step 3: amount limits.
	if !req.MaxTradeAmount.IsZero() && req.Amount.GreaterThan(req.MaxTradeAmount) {
		return PreFlightResult{}, domain.NewAPIError(domain.CodeAmountAboveMax,
			"amount "+req.Amount.String()+" exceeds max trade amount "+req.MaxTradeAmount.String())
	}
	if !req.PortfolioPercent.IsZero() {
		portfolioCap := balance.Mul(req.PortfolioPercent).Div(decimal.NewFromInt(100))
		if req.Amount.GreaterThan(portfolioCap) {
			return PreFlightResult{}, domain.NewAPIError(domain.CodeAmountAboveMax,
				"amount "+req.Amount.String()+" exceeds portfolio cap "+portfolioCap.String())
		}
	}
	if req.Amount.LessThan(minTradeAmount) {
		return PreFlightResult{}, domain.NewAPIError(domain.CodeAmountBelowMin,
			"amount "+req.Amount.String()+" below minimum "+minTradeAmount.String())
	}

	// Step 4: confirmation.
	if !req.DryRun && !req.Confirmed {
		return PreFlightResult{}, domain.NewAPIError(domain.CodeConfirmationRequired,
			"live execution requires confirmed=true")
	}

	return PreFlightResult{Opportunity: opp, Warnings: warnings}, nil
}
