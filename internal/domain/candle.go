// Package domain holds the data model shared by both engines: candles,
// strategies, positions, credentials, balances, and triangular-arb paths.
// Types here are storage-layer agnostic; internal/store maps them to rows.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is the normalized OHLCV row every ExchangeAdapter returns,
// generalizing the teacher's strategy.go Candle to decimal fields.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Interval is a canonical candle interval (spec §4.1).
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// OrderBookLevel is one [price, size] row.
type OrderBookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is top-of-book-and-beyond; callers needing only top-of-book take
// Bids[0]/Asks[0] (spec's Non-goals exclude depth aggregation beyond that).
type OrderBook struct {
	Bids []OrderBookLevel
	Asks []OrderBookLevel
}

// TopBid returns the best bid, or a zero level if the book is empty.
func (ob OrderBook) TopBid() OrderBookLevel {
	if len(ob.Bids) == 0 {
		return OrderBookLevel{}
	}
	return ob.Bids[0]
}

// TopAsk returns the best ask, or a zero level if the book is empty.
func (ob OrderBook) TopAsk() OrderBookLevel {
	if len(ob.Asks) == 0 {
		return OrderBookLevel{}
	}
	return ob.Asks[0]
}

// OrderSide is the side of a trade, matching the teacher's broker.go enum.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Fill normalizes an executed order across every venue (spec §4.1).
type Fill struct {
	OrderID         string
	ExecutedPrice   decimal.Decimal
	ExecutedQty     decimal.Decimal
	ExecutedValue   decimal.Decimal
	Fee             decimal.Decimal
	Liquidity       string // "maker" | "taker" | ""
}
