package exchange

import "fmt"

// Factory builds a fresh Adapter for one venue. Adapters hold no per-user
// state. New calls the factory on every lookup, so instances, and the request
// pacer each one carries, are not shared between lookups.
type Factory func() Adapter

var factories = map[string]Factory{}

func register(name string, f Factory) {
	factories[name] = f
}

// New returns the adapter registered for name, or an error if the venue is
// unknown. Callers pass the canonical lowercase exchange key used throughout
// spec §4.6's cooldown table (binance, bybit, okx, kucoin, coinbase, kraken,
// valr, luno, chainex, ...).
func New(name string) (Adapter, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("exchange: unknown venue %q", name)
	}
	return f(), nil
}

// Names lists every registered venue, primarily for the venue-registry
// endpoint and tests enumerating "every adapter" (spec §8).
func Names() []string {
	names := make([]string, 0, len(factories))
	for k := range factories {
		names = append(names, k)
	}
	return names
}

func init() {
	register("binance", func() Adapter { return newBinanceAdapter() })
	register("bybit", func() Adapter { return newBybitAdapter() })
	register("okx", func() Adapter { return newOKXAdapter() })
	register("bitget", func() Adapter { return newBitgetAdapter() })
	register("kraken", func() Adapter { return newKrakenAdapter() })
	register("gemini", func() Adapter { return newGeminiAdapter() })
	register("valr", func() Adapter { return newVALRAdapter() })
	register("luno", func() Adapter { return newLunoAdapter() })
	register("ascendex", func() Adapter { return newAscendEXAdapter() })
	register("kucoin", func() Adapter { return newKuCoinAdapter() })
	register("coinbase", func() Adapter { return newCoinbaseAdapter() })
	register("hitbtc", func() Adapter { return newHitBTCAdapter() })
}
