// Package momentum implements MomentumWorker and PositionMonitor (spec §4.3,
// §4.4): the 60-second periodic scheduler that opens and closes positions
// across every active strategy.
package momentum

import (
	"context"
	"log"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/chidi150c/tradebackend/internal/executor"
	"github.com/chidi150c/tradebackend/internal/metrics"
	"github.com/chidi150c/tradebackend/internal/signal"
	"github.com/chidi150c/tradebackend/internal/store"
)

// PositionMonitor closes a (user, exchange) pair's open positions whose exit
// conditions fire, using the three-step at-most-once close protocol (spec
// §4.4). A failure on one position is logged and never aborts the others.
type PositionMonitor struct {
	repo     *store.Repository
	adapters func(exchangeName string) (exchange.Adapter, error)
	orders   *executor.OrderExecutor
}

// NewPositionMonitor builds a PositionMonitor over repo, using adapters to
// resolve venue quotes and orders to submit the exit market sell.
func NewPositionMonitor(repo *store.Repository, adapters func(string) (exchange.Adapter, error), orders *executor.OrderExecutor) *PositionMonitor {
	return &PositionMonitor{repo: repo, adapters: adapters, orders: orders}
}

// Run iterates every OPEN position for (userID, exchangeName), evaluates its
// exit conditions against the current price, and closes any that fire.
func (m *PositionMonitor) Run(ctx context.Context, userID int64, exchangeName string, rulesFor func(strategyID int64) (domain.ExitRules, bool), creds exchange.Credentials) {
	positions, err := m.repo.ListOpenPositions(ctx, userID, exchangeName)
	if err != nil {
		log.Printf("momentum: monitor: list open positions user=%d exchange=%s: %v", userID, exchangeName, err)
		return
	}
	for _, pos := range positions {
		if err := m.checkAndClose(ctx, pos, rulesFor, creds); err != nil {
			log.Printf("momentum: monitor: position=%d: %v", pos.ID, err)
		}
	}
}

func (m *PositionMonitor) checkAndClose(ctx context.Context, pos domain.Position, rulesFor func(int64) (domain.ExitRules, bool), creds exchange.Credentials) error {
	rules, ok := rulesFor(pos.StrategyID)
	if !ok {
		return nil // strategy since deactivated/deleted; leave position for manual handling
	}
	adapter, err := m.adapters(pos.Exchange)
	if err != nil {
		return err
	}
	price, err := adapter.FetchCurrentPrice(ctx, pos.Pair)
	if err != nil {
		return err
	}
	decision := signal.EvaluateExit(pos, price, rules, time.Now())
	if !decision.ShouldExit {
		return nil
	}
	return m.closePosition(ctx, pos, decision.Reason, creds)
}

// closePosition runs the three-step protocol (spec §4.4): mark-closing,
// submit the sell, finalise. ErrAlreadyClaimed is not an error condition —
// another task (or a manual-close request) already owns this close.
func (m *PositionMonitor) closePosition(ctx context.Context, pos domain.Position, reason domain.ExitReason, creds exchange.Credentials) error {
	if err := m.repo.MarkClosing(ctx, pos.ID); err != nil {
		if err == store.ErrAlreadyClaimed {
			return nil
		}
		return err
	}

	fill, err := m.orders.Sell(ctx, pos.Exchange, creds, pos.Pair, pos.EntryQuantity)
	if err != nil {
		// Position is stuck in CLOSING; the /positions/:id/force-close recovery
		// endpoint is the operator's path back to CLOSED (spec §4.4).
		return err
	}

	pos.ExitPrice = fill.ExecutedPrice
	pos.ExitQuantity = fill.ExecutedQty
	pos.ExitFee = fill.Fee
	pos.ExitTime = time.Now()
	pos.ExitReason = reason
	pos.ExitOrderID = fill.OrderID
	pos.ComputeExitPnL()

	if err := m.repo.FinalizeClose(ctx, pos); err != nil {
		return err
	}
	metrics.RecordTrade(string(reason), pos.ExitPnL.Sign() >= 0)
	metrics.OpenPositions.WithLabelValues(pos.Exchange).Dec()
	return nil
}

// ManualClose handles the POST /positions/:id/close endpoint: a caller-
// initiated close that follows the identical three-step protocol.
func (m *PositionMonitor) ManualClose(ctx context.Context, pos domain.Position, creds exchange.Credentials) error {
	return m.closePosition(ctx, pos, domain.ExitManualClose, creds)
}
