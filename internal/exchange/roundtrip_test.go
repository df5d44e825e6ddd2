package exchange

import (
	"testing"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/stretchr/testify/assert"
)

// canonicalPairsFor lists representative canonical pairs, in the concatenated
// "BASEQUOTE" form spec §4.1 defines (and the only form any runtime caller —
// internal/momentum/worker.go, internal/triarb/paths.go — ever builds), that
// each adapter's FromVenuePair must losslessly invert (spec §8's pair
// round-trip property).
var canonicalPairsFor = map[string][]string{
	"valr":     {"BTCUSDT", "ETHZAR", "BTCZAR"},
	"luno":     {"BTCUSDT", "ETHZAR"},
	"binance":  {"BTCUSDT", "ETHBTC", "BNBUSDT"},
	"bybit":    {"BTCUSDT", "ETHUSDT"},
	"kraken":   {"BTCUSD", "ETHUSD"},
	"kucoin":   {"BTCUSDT"},
	"okx":      {"BTCUSDT"},
	"coinbase": {"BTCUSDT"},
	"gemini":   {"BTCUSDT"},
	"hitbtc":   {"BTCUSDT"},
	"bitget":   {"BTCUSDT"},
	"ascendex": {"BTCUSDT"},
}

func TestPairRoundTrip(t *testing.T) {
	for name, pairs := range canonicalPairsFor {
		name, pairs := name, pairs
		t.Run(name, func(t *testing.T) {
			adapter, err := New(name)
			if err != nil {
				t.Fatalf("registry has no adapter for %q: %v", name, err)
			}
			for _, p := range pairs {
				venue := adapter.ToVenuePair(p)
				got := adapter.FromVenuePair(venue)
				assert.Equal(t, p, got, "%s: from_venue(to_venue(%s)) = %s, want %s", name, p, got, p)
			}
		})
	}
}

var canonicalIntervals = []domain.Interval{
	domain.Interval1m, domain.Interval5m, domain.Interval15m, domain.Interval30m,
	domain.Interval1h, domain.Interval4h, domain.Interval1d,
}

// TestIntervalMapping_NeverEmpty exercises every adapter's ToVenueInterval
// across the canonical interval set (spec §8): every registered interval
// must resolve to a non-empty venue token, never silently drop to "".
func TestIntervalMapping_NeverEmpty(t *testing.T) {
	for name := range canonicalPairsFor {
		name := name
		t.Run(name, func(t *testing.T) {
			adapter, err := New(name)
			if err != nil {
				t.Fatalf("registry has no adapter for %q: %v", name, err)
			}
			for _, iv := range canonicalIntervals {
				got := adapter.ToVenueInterval(iv)
				assert.NotEmpty(t, got, "%s: ToVenueInterval(%s) is empty", name, iv)
			}
		})
	}
}
