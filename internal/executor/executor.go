// Package executor implements OrderExecutor (spec §4.1/§4.4): venue dispatch
// for market buy/sell, normalizing the resulting fill regardless of which
// adapter executed it.
package executor

import (
	"context"
	"fmt"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/shopspring/decimal"
)

// OrderExecutor dispatches a buy/sell to the named venue's adapter. It holds
// no per-call state of its own; credentials flow through every call and are
// discarded after use (spec §9's credential-in-parameter rule).
type OrderExecutor struct {
	registry func(exchangeName string) (exchange.Adapter, error)
}

// New builds an OrderExecutor backed by exchange.New, the module's venue
// registry. Tests can supply a fake registry func to avoid real adapters.
func New() *OrderExecutor {
	return &OrderExecutor{registry: exchange.New}
}

// NewWithRegistry lets callers (notably tests) inject a custom adapter
// lookup instead of the real exchange registry.
func NewWithRegistry(registry func(string) (exchange.Adapter, error)) *OrderExecutor {
	return &OrderExecutor{registry: registry}
}

// Buy submits a market buy for quoteAmount (quote-currency notional) on
// exchangeName/pair and returns the normalized fill (spec §4.4 step 1).
func (e *OrderExecutor) Buy(ctx context.Context, exchangeName string, creds exchange.Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error) {
	adapter, err := e.registry(exchangeName)
	if err != nil {
		return domain.Fill{}, err
	}
	fill, err := adapter.ExecuteMarketBuy(ctx, creds, pair, quoteAmount)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("executor: buy %s/%s: %w", exchangeName, pair, err)
	}
	return normalizeFill(ctx, adapter, pair, fill, quoteAmount, decimal.Zero)
}

// Sell submits a market sell for baseQuantity on exchangeName/pair (spec
// §4.4 step 2 of the close protocol, and the triarb executor's sell legs).
func (e *OrderExecutor) Sell(ctx context.Context, exchangeName string, creds exchange.Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error) {
	adapter, err := e.registry(exchangeName)
	if err != nil {
		return domain.Fill{}, err
	}
	fill, err := adapter.ExecuteMarketSell(ctx, creds, pair, baseQuantity)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("executor: sell %s/%s: %w", exchangeName, pair, err)
	}
	return normalizeFill(ctx, adapter, pair, fill, decimal.Zero, baseQuantity)
}

// normalizeFill backfills executed_price/quantity/value/fee when a venue's
// order-submission response left them zero (several adapters' market-order
// endpoints return only an order id; the authoritative fill would need a
// follow-up order-status call this module doesn't make). The current market
// price and the adapter's own posted taker fee are the best approximation
// available without that extra round trip — every downstream consumer
// (position PnL, triarb leg slippage) needs a populated Fill to do decimal
// math against, never a silent zero (spec §4.1). Adapters that already
// return a real fill (binance, gemini) are left untouched.
func normalizeFill(ctx context.Context, adapter exchange.Adapter, pair string, fill domain.Fill, quoteAmount, baseQty decimal.Decimal) (domain.Fill, error) {
	if !fill.ExecutedPrice.IsZero() && !fill.ExecutedQty.IsZero() {
		return fill, nil
	}
	price, err := adapter.FetchCurrentPrice(ctx, pair)
	if err != nil || price.IsZero() {
		return fill, nil
	}
	fee := adapter.TakerFee()
	switch {
	case !quoteAmount.IsZero():
		fill.ExecutedValue = quoteAmount
		fill.ExecutedQty = quoteAmount.Div(price)
		fill.Fee = quoteAmount.Mul(fee)
	case !baseQty.IsZero():
		fill.ExecutedQty = baseQty
		fill.ExecutedValue = baseQty.Mul(price)
		fill.Fee = fill.ExecutedValue.Mul(fee)
	}
	fill.ExecutedPrice = price
	return fill, nil
}

// Slippage returns |executed - expected| / expected * 100 (spec §4.5), the
// check every triarb leg applies after its fill.
func Slippage(expected, executed decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return executed.Sub(expected).Abs().Div(expected).Mul(decimal.NewFromInt(100))
}
