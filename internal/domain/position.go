package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the three-state lifecycle spec.md §4.4/§9 requires for
// at-most-once close: OPEN -> CLOSING -> CLOSED.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionClosing PositionStatus = "CLOSING"
	PositionClosed  PositionStatus = "CLOSED"
)

// ExitReason records why a position was closed (spec §3).
type ExitReason string

const (
	ExitTakeProfit     ExitReason = "take_profit"
	ExitStopLoss       ExitReason = "stop_loss"
	ExitMaxHoldTime    ExitReason = "max_hold_time"
	ExitManualClose    ExitReason = "manual_close"
	ExitManualRecovery ExitReason = "manual_recovery"
)

// EntrySignal records one triggered indicator at open time, for audit trails.
type EntrySignal struct {
	Indicator string
	Value     decimal.Decimal
}

// Position is one momentum-strategy trade (spec §3).
type Position struct {
	ID            int64
	UserID        int64
	StrategyID    int64
	Exchange      string
	Asset         string
	Pair          string
	Status        PositionStatus

	EntryPrice    decimal.Decimal
	EntryQuantity decimal.Decimal
	EntryValue    decimal.Decimal
	EntryFee      decimal.Decimal
	EntryTime     time.Time
	EntrySignals  []EntrySignal
	EntryOrderID  string

	ExitPrice       decimal.Decimal
	ExitQuantity    decimal.Decimal
	ExitFee         decimal.Decimal
	ExitTime        time.Time
	ExitReason      ExitReason
	ExitOrderID     string
	ExitPnL         decimal.Decimal
	ExitPnLPercent  decimal.Decimal
}

// ComputeExitPnL fills ExitPnL/ExitPnLPercent per spec §3's formula:
//
//	exit_pnl = (exit_qty * exit_price - exit_fee) - (entry_value + entry_fee)
//	exit_pnl_percent = exit_pnl / entry_value * 100
func (p *Position) ComputeExitPnL() {
	gross := p.ExitQuantity.Mul(p.ExitPrice).Sub(p.ExitFee)
	cost := p.EntryValue.Add(p.EntryFee)
	p.ExitPnL = gross.Sub(cost)
	if p.EntryValue.IsZero() {
		p.ExitPnLPercent = decimal.Zero
		return
	}
	p.ExitPnLPercent = p.ExitPnL.Div(p.EntryValue).Mul(decimal.NewFromInt(100))
}
