package triarb

import (
	"context"
	"sort"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/chidi150c/tradebackend/internal/metrics"
	"github.com/shopspring/decimal"
)

// strictVenues fetch order books sequentially with an added inter-request
// delay on top of the adapter's own pacing: VALR returns HTTP 429 under
// parallel/fast-sequential fetching (spec §4.5).
var strictVenues = map[string]time.Duration{
	"valr": 5 * time.Second,
}

// Scanner implements TriArbScanner (spec §4.5): for one exchange, fetch every
// order book a path set needs and rank the resulting opportunities.
type Scanner struct {
	registry func(exchangeName string) (exchange.Adapter, error)
}

// NewScanner builds a Scanner backed by the real exchange registry.
func NewScanner() *Scanner {
	return &Scanner{registry: exchange.New}
}

// NewScannerWithRegistry lets tests inject a fake adapter lookup.
func NewScannerWithRegistry(registry func(string) (exchange.Adapter, error)) *Scanner {
	return &Scanner{registry: registry}
}

// ScanDebug records what the scan actually did, returned alongside results
// for the /triarb/scan response's "debug" field.
type ScanDebug struct {
	PairsFetched  []string
	PathsScanned  int
	FetchErrors   map[string]string
}

// Scan fetches order books for every pair in pathSetName and returns
// opportunities at or above profitThreshold, sorted descending by
// ProfitPercent (spec §4.5). amount is the notional the profit calculation
// starts from, in the path's first currency.
func (s *Scanner) Scan(ctx context.Context, exchangeName, pathSetName string, amount, profitThreshold decimal.Decimal) ([]domain.Opportunity, ScanDebug, error) {
	paths, err := PathSet(exchangeName, pathSetName)
	if err != nil {
		return nil, ScanDebug{}, err
	}
	adapter, err := s.registry(exchangeName)
	if err != nil {
		return nil, ScanDebug{}, err
	}

	pairs := RequiredPairs(paths)
	books := orderBooks{}
	debug := ScanDebug{PairsFetched: pairs, PathsScanned: len(paths), FetchErrors: map[string]string{}}
	extraDelay := strictVenues[exchangeName]

	for i, pair := range pairs {
		ob, err := adapter.FetchOrderBook(ctx, pair)
		if err != nil {
			debug.FetchErrors[pair] = err.Error()
			continue
		}
		books[pair] = ob
		if i < len(pairs)-1 && extraDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, debug, ctx.Err()
			case <-time.After(extraDelay):
			}
		}
	}

	fee := adapter.TakerFee()
	opportunities := make([]domain.Opportunity, 0, len(paths))
	for _, path := range paths {
		opp, err := ComputeProfit(path, books, fee, amount)
		if err != nil {
			debug.FetchErrors[path.ID] = err.Error()
			continue
		}
		if opp.ProfitPercent.GreaterThanOrEqual(profitThreshold) {
			opportunities = append(opportunities, opp)
			metrics.TriArbOpportunities.WithLabelValues(exchangeName).Inc()
		}
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].ProfitPercent.GreaterThan(opportunities[j].ProfitPercent)
	})
	return opportunities, debug, nil
}
