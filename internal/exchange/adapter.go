// Package exchange provides the uniform ExchangeAdapter contract (spec §4.1)
// and a registry of venue implementations. Every adapter owns its own
// symbol/interval mapping, signing scheme, and rate-limit pacing; this is the
// only package in the module where signing logic lives, generalizing the
// teacher's broker_*.go one-file-per-venue shape to a shared interface plus a
// tagged factory registry (spec §9).
package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

// Credentials flow into every call as a parameter and are never memoised on
// the adapter (spec §5, §9: "stateless, credential-in-parameter design").
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Memo       string
}

// Adapter is the minimal surface every venue implementation exposes
// (spec §4.1).
type Adapter interface {
	Name() string

	FetchCandles(ctx context.Context, pair string, interval domain.Interval, limit int) ([]domain.Candle, error)
	FetchCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error)
	FetchBalance(ctx context.Context, creds Credentials, currency string) (decimal.Decimal, error)
	FetchOrderBook(ctx context.Context, pair string) (domain.OrderBook, error)
	ExecuteMarketBuy(ctx context.Context, creds Credentials, pair string, quoteAmount decimal.Decimal) (domain.Fill, error)
	ExecuteMarketSell(ctx context.Context, creds Credentials, pair string, baseQuantity decimal.Decimal) (domain.Fill, error)
	TestConnection(ctx context.Context, creds Credentials) error

	// ToVenuePair/FromVenuePair and ToVenueInterval expose the per-venue
	// symbol/interval tables so the round-trip property tests in spec §8 can
	// exercise them directly without going over the network. Intervals map in
	// one direction only; there is no venue-to-canonical interval method.
	ToVenuePair(canonical string) string
	FromVenuePair(venue string) string
	ToVenueInterval(canonical domain.Interval) string

	// TakerFee and MakerFee back the per-exchange fee table triarb's profit
	// calculation and the momentum fee accounting both need.
	TakerFee() decimal.Decimal
	MakerFee() decimal.Decimal

	// MinRequestInterval is this venue's rate-limit pacing floor (spec §4.1).
	MinRequestInterval() time.Duration
}

// VenueError is the typed error every adapter returns for a non-2xx or
// venue-specific error response (spec §4.1: "never silently coerced").
type VenueError struct {
	Venue      string
	HTTPStatus int
	VenueCode  string
	Message    string
}

func (e *VenueError) Error() string {
	return e.Venue + ": http=" + strconv.Itoa(e.HTTPStatus) + " code=" + e.VenueCode + " msg=" + e.Message
}
