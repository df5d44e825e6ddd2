package triarb

import (
	"context"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/executor"
	"github.com/chidi150c/tradebackend/internal/metrics"
	"github.com/chidi150c/tradebackend/internal/ratelimit"
	"github.com/shopspring/decimal"
)

// legTimeout bounds each of the three sequential market orders (spec §4.5).
const legTimeout = 30 * time.Second

// defaultMaxSlippagePercent is the leg abort threshold when a request omits
// one (spec §4.5: "default 0.5%").
var defaultMaxSlippagePercent = decimal.NewFromFloat(0.5)

// Cooldown returns the per-exchange live-execution cooldown (spec §4.6).
func Cooldown(exchangeName string) time.Duration {
	switch exchangeName {
	case "valr", "luno", "chainex":
		return 30 * time.Second
	case "binance", "bybit", "okx", "kucoin", "coinbase":
		return 15 * time.Second
	case "kraken":
		return 20 * time.Second
	default:
		return 20 * time.Second
	}
}

// LegResult records one leg's fill and realised slippage.
type LegResult struct {
	Pair          string
	Side          domain.StepSide
	ExpectedPrice decimal.Decimal
	Fill          domain.Fill
	SlippagePct   decimal.Decimal
	Err           error
}

// ExecutionResult is the full /triarb/execute response body (spec §6).
type ExecutionResult struct {
	PathID       string
	DryRun       bool
	Opportunity  domain.Opportunity
	Warnings     []string
	Legs         []LegResult
	FailedAtLeg  int // -1 if all legs succeeded
	Completed    bool
}

// Executor implements TriArbExecutor (spec §4.5/§4.6): pre-flight, the
// process-wide execution rate-limit gate, then three sequential legs.
type Executor struct {
	checker    *Checker
	orders     *executor.OrderExecutor
	rateLimits *ratelimit.ExecutionState
	maxSlippage decimal.Decimal
}

// NewExecutor wires the real exchange registry, a fresh OrderExecutor, and
// the given process-wide ExecutionState (spec §9: the limiter is handed to
// constructors, not a package global).
func NewExecutor(rateLimits *ratelimit.ExecutionState) *Executor {
	return &Executor{
		checker:     NewChecker(),
		orders:      executor.New(),
		rateLimits:  rateLimits,
		maxSlippage: defaultMaxSlippagePercent,
	}
}

// Execute runs pre-flight, the rate-limit gate (skipped for dry runs per
// spec §4.6), and the three legs. It returns a populated ExecutionResult
// even on leg failure; no automatic rollback is attempted (spec §4.5).
func (e *Executor) Execute(ctx context.Context, req PreFlightRequest) (ExecutionResult, error) {
	pf, err := e.checker.Run(ctx, req)
	if err != nil {
		return ExecutionResult{}, err
	}

	result := ExecutionResult{
		PathID:      req.Path.ID,
		DryRun:      req.DryRun,
		Opportunity: pf.Opportunity,
		Warnings:    pf.Warnings,
		FailedAtLeg: -1,
	}

	if req.DryRun {
		result.Completed = true
		return result, nil
	}

	decision := e.rateLimits.TryBegin(req.Exchange)
	if !decision.Allowed {
		code := domain.CodeVenueBusy
		if decision.Reason == "cooldown active" {
			code = domain.CodeCooldownActive
		}
		return ExecutionResult{}, domain.NewAPIError(code, decision.Reason)
	}
	defer e.rateLimits.Complete(req.Exchange)

	amount := req.Amount
	for i, step := range req.Path.Steps {
		legCtx, cancel := context.WithTimeout(ctx, legTimeout)
		expectedPrice := pf.Opportunity.Steps[i].Price

		var fill domain.Fill
		var execErr error
		if step.Side == domain.StepBuy {
			fill, execErr = e.orders.Buy(legCtx, req.Exchange, req.Credentials, step.Pair, amount)
		} else {
			fill, execErr = e.orders.Sell(legCtx, req.Exchange, req.Credentials, step.Pair, amount)
		}
		cancel()

		leg := LegResult{Pair: step.Pair, Side: step.Side, ExpectedPrice: expectedPrice, Fill: fill}
		if execErr != nil {
			leg.Err = execErr
			result.Legs = append(result.Legs, leg)
			result.FailedAtLeg = i
			return result, nil
		}

		leg.SlippagePct = executor.Slippage(expectedPrice, fill.ExecutedPrice)
		slippageF, _ := leg.SlippagePct.Float64()
		metrics.TriArbLegSlippage.WithLabelValues(req.Exchange, step.Pair).Observe(slippageF)
		metrics.Orders.WithLabelValues("triarb", req.Exchange, strings.ToLower(string(step.Side))).Inc()
		if leg.SlippagePct.GreaterThan(e.maxSlippage) {
			result.Legs = append(result.Legs, leg)
			result.FailedAtLeg = i
			return result, nil
		}
		result.Legs = append(result.Legs, leg)

		if step.Side == domain.StepBuy {
			amount = fill.ExecutedQty
		} else {
			amount = fill.ExecutedValue
		}
	}

	result.Completed = true
	return result, nil
}

// WithMaxSlippage overrides the default 0.5% per-leg slippage tolerance.
func (e *Executor) WithMaxSlippage(pct decimal.Decimal) *Executor {
	e.maxSlippage = pct
	return e
}
