package momentum

import (
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chidi150c/tradebackend/internal/config"
	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/chidi150c/tradebackend/internal/executor"
	"github.com/chidi150c/tradebackend/internal/metrics"
	"github.com/chidi150c/tradebackend/internal/signal"
	"github.com/chidi150c/tradebackend/internal/store"
)

// defaultQuote is the quote currency every momentum asset trades against;
// the engine is single-quote per spec §9's "the engine is quote-agnostic"
// note notwithstanding, this module fixes USDT as the practical default.
const defaultQuote = "USDT"

// Worker is MomentumWorker (spec §4.3): a single periodic task that drives
// the entire momentum engine on a fixed tick.
type Worker struct {
	repo     *store.Repository
	adapters func(exchangeName string) (exchange.Adapter, error)
	orders   *executor.OrderExecutor
	monitor  *PositionMonitor
	cfg      config.Config
	cursors  *rotationCursors
	errCount int64
}

// NewWorker wires a Worker over repo using the real exchange registry.
func NewWorker(repo *store.Repository, cfg config.Config) *Worker {
	orders := executor.New()
	return &Worker{
		repo:     repo,
		adapters: exchange.New,
		orders:   orders,
		monitor:  NewPositionMonitor(repo, exchange.New, orders),
		cfg:      cfg,
		cursors:  newRotationCursors(),
	}
}

// ErrorCount returns the number of strategy-cycle failures observed so far
// (spec §4.3: "increments an error counter").
func (w *Worker) ErrorCount() int64 { return atomic.LoadInt64(&w.errCount) }

// Start runs RunOnce every cfg.WorkerTickInterval until ctx is cancelled.
// Scheduler shutdown joins any in-flight cycle before returning (spec §5).
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.WorkerTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes one full tick (spec §4.3 steps 1-4). A failure processing
// one strategy is logged and never aborts the rest.
func (w *Worker) RunOnce(ctx context.Context) {
	strategies, err := w.repo.ListActiveStrategies(ctx)
	if err != nil {
		log.Printf("momentum: worker: list active strategies: %v", err)
		return
	}

	rulesByID := make(map[int64]domain.ExitRules, len(strategies))
	for _, s := range strategies {
		rulesByID[s.ID] = s.ExitRules
	}
	rulesFor := func(strategyID int64) (domain.ExitRules, bool) {
		r, ok := rulesByID[strategyID]
		return r, ok
	}

	monitored := map[string]struct{}{} // dedupe PositionMonitor runs per (user,exchange)
	credsCache := map[string]exchange.Credentials{}

	for _, s := range strategies {
		key := credKey(s.UserID, s.Exchange)
		creds, ok := credsCache[key]
		if !ok {
			loaded, err := w.repo.LoadCredentials(ctx, s.UserID, s.Exchange)
			if err != nil {
				log.Printf("momentum: worker: strategyId=%d missing credentials user=%d exchange=%s: %v", s.ID, s.UserID, s.Exchange, err)
				continue
			}
			creds = exchange.Credentials{APIKey: loaded.APIKey, APISecret: loaded.APISecret, Passphrase: loaded.Passphrase, Memo: loaded.Memo}
			credsCache[key] = creds
		}

		if _, done := monitored[key]; !done {
			w.monitor.Run(ctx, s.UserID, s.Exchange, rulesFor, creds)
			monitored[key] = struct{}{}
		}

		if err := w.processStrategy(ctx, s, creds); err != nil {
			atomic.AddInt64(&w.errCount, 1)
			log.Printf("momentum: worker: strategyId=%d: %v", s.ID, err)
		}
	}
}

func credKey(userID int64, exchangeName string) string {
	return exchangeName + ":" + strconv.FormatInt(userID, 10)
}

type assetSignalResult struct {
	asset   string
	fired   bool
	err     error
	candles []domain.Candle
}

// processStrategy runs PositionMonitor's companion half: entry-signal
// checks for the strategy's current asset batch (spec §4.3 step 4).
func (w *Worker) processStrategy(ctx context.Context, s domain.Strategy, creds exchange.Credentials) error {
	openCount, err := w.repo.CountOpenPositions(ctx, s.ID)
	if err != nil {
		return err
	}
	if int(openCount) >= s.MaxOpenPositions {
		return nil
	}

	batch := w.cursors.batch(s.ID, s.Assets, w.cfg.RotationThreshold, w.cfg.RotationBatch)
	results := w.evaluateBatch(ctx, s, batch)

	strategyIDStr := strconv.FormatInt(s.ID, 10)
	for _, r := range results {
		if r.err != nil {
			log.Printf("momentum: worker: strategyId=%d asset=%s: %v", s.ID, r.asset, r.err)
			continue
		}
		metrics.Decisions.WithLabelValues(strategyIDStr, strconv.FormatBool(r.fired)).Inc()
		if !r.fired {
			continue
		}
		openCount, err := w.repo.CountOpenPositions(ctx, s.ID)
		if err != nil {
			return err
		}
		if int(openCount) >= s.MaxOpenPositions {
			break
		}
		if err := w.openPosition(ctx, s, r.asset, creds); err != nil {
			log.Printf("momentum: worker: strategyId=%d asset=%s open failed: %v", s.ID, r.asset, err)
			continue
		}
	}
	return nil
}

// evaluateBatch runs candle fetch + indicator/signal evaluation for every
// asset in batch, concurrently in sub-batches of cfg.ParallelBatchSize (spec
// §4.3: "asset signal evaluations run concurrently in sub-batches"). Signal
// evaluation is read-only; nothing here opens a position.
func (w *Worker) evaluateBatch(ctx context.Context, s domain.Strategy, batch []string) []assetSignalResult {
	results := make([]assetSignalResult, len(batch))
	subBatch := w.cfg.ParallelBatchSize
	if subBatch <= 0 {
		subBatch = len(batch)
	}
	for start := 0; start < len(batch); start += subBatch {
		end := start + subBatch
		if end > len(batch) {
			end = len(batch)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = w.evaluateAsset(ctx, s, batch[i])
			}(i)
		}
		wg.Wait()
	}
	return results
}

func (w *Worker) evaluateAsset(ctx context.Context, s domain.Strategy, asset string) assetSignalResult {
	pair := asset + defaultQuote
	sourceExchange := s.Exchange
	if w.cfg.UseUniversalCandleSource {
		sourceExchange = w.cfg.CandleSourceExchange
	}
	adapter, err := w.adapters(sourceExchange)
	if err != nil {
		return assetSignalResult{asset: asset, err: err}
	}
	candles, err := adapter.FetchCandles(ctx, pair, s.Timeframe, w.cfg.MinCandlesForSignal)
	if err != nil {
		return assetSignalResult{asset: asset, err: err}
	}
	if len(candles) < w.cfg.MinCandlesIndicators {
		return assetSignalResult{asset: asset, fired: false} // insufficient data: skipped, not an error (spec §7)
	}
	triggers := signal.EvaluateIndicators(candles, s.EntryIndicators)
	fired := signal.ShouldEnter(triggers, s.EntryLogic)
	return assetSignalResult{asset: asset, fired: fired, candles: candles}
}

// openPosition submits the entry buy and persists the resulting position
// (spec §4.4's open steps 1-3).
func (w *Worker) openPosition(ctx context.Context, s domain.Strategy, asset string, creds exchange.Credentials) error {
	pair := asset + defaultQuote
	fill, err := w.orders.Buy(ctx, s.Exchange, creds, pair, s.MaxTradeAmount)
	if err != nil {
		return err
	}
	metrics.Orders.WithLabelValues("momentum", s.Exchange, "buy").Inc()

	pos := domain.Position{
		UserID:        s.UserID,
		StrategyID:    s.ID,
		Exchange:      s.Exchange,
		Asset:         asset,
		Pair:          pair,
		Status:        domain.PositionOpen,
		EntryPrice:    fill.ExecutedPrice,
		EntryQuantity: fill.ExecutedQty,
		EntryValue:    fill.ExecutedValue,
		EntryFee:      fill.Fee,
		EntryTime:     time.Now(),
		EntryOrderID:  fill.OrderID,
	}
	if _, err := w.repo.CreatePosition(ctx, pos); err != nil {
		return err
	}
	metrics.OpenPositions.WithLabelValues(s.Exchange).Inc()
	return nil
}
