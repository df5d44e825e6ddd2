package triarb

import (
	"fmt"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// orderBooks maps a pair to its fetched book, the shape ComputeProfit walks
// one path against. Keys are canonical pair strings (e.g. "BTCUSDT").
type orderBooks map[string]domain.OrderBook

// ComputeProfit walks path's three legs against books, applying fee on input
// for buys and on output for sells (spec §4.5's "profit calculation" rule),
// and returns the resulting Opportunity. startAmount is denominated in the
// path's first currency (the token before the first "->" in Sequence).
func ComputeProfit(path domain.TriangularPath, books orderBooks, fee decimal.Decimal, startAmount decimal.Decimal) (domain.Opportunity, error) {
	one := decimal.NewFromInt(1)
	feeFactor := one.Sub(fee)

	amount := startAmount
	steps := make([]domain.OpportunityStep, 0, 3)

	for _, step := range path.Steps {
		book, ok := books[step.Pair]
		if !ok {
			return domain.Opportunity{}, fmt.Errorf("triarb: missing order book for pair %s in path %s", step.Pair, path.ID)
		}
		input := amount
		var output decimal.Decimal
		var price decimal.Decimal

		switch step.Side {
		case domain.StepBuy:
			ask := book.TopAsk()
			if ask.Price.IsZero() {
				return domain.Opportunity{}, fmt.Errorf("triarb: empty ask side for pair %s", step.Pair)
			}
			price = ask.Price
			output = input.Mul(feeFactor).Div(price)
		case domain.StepSell:
			bid := book.TopBid()
			price = bid.Price
			output = input.Mul(price).Mul(feeFactor)
		default:
			return domain.Opportunity{}, fmt.Errorf("triarb: unknown step side %q", step.Side)
		}

		stepFee := input.Sub(input.Mul(feeFactor)).Abs()
		steps = append(steps, domain.OpportunityStep{
			Pair:         step.Pair,
			Side:         step.Side,
			InputAmount:  input,
			OutputAmount: output,
			Price:        price,
			Fee:          stepFee,
		})
		amount = output
	}

	profit := amount.Sub(startAmount)
	profitPercent := decimal.Zero
	if !startAmount.IsZero() {
		profitPercent = profit.Div(startAmount).Mul(decimal.NewFromInt(100))
	}
	totalFees := decimal.Zero
	for _, s := range steps {
		totalFees = totalFees.Add(s.Fee)
	}

	return domain.Opportunity{
		PathID:        path.ID,
		StartAmount:   startAmount,
		EndAmount:     amount,
		Profit:        profit,
		ProfitPercent: profitPercent,
		TotalFees:     totalFees,
		Steps:         steps,
	}, nil
}

// RequiredPairs returns the set of distinct pairs every path in paths needs
// an order book for, the union TriArbScanner fetches once per scan (spec
// §4.5: "collect the union of pairs from all paths").
func RequiredPairs(paths []domain.TriangularPath) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range paths {
		for _, pair := range p.Pairs {
			if _, ok := seen[pair]; !ok {
				seen[pair] = struct{}{}
				out = append(out, pair)
			}
		}
	}
	return out
}
