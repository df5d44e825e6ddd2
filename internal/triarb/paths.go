// Package triarb implements TriArbScanner and TriArbExecutor (spec §4.5/§4.6):
// scanning a venue's triangular-cycle path set for profitable loops and,
// on request, executing one as three sequential market legs.
package triarb

import "github.com/chidi150c/tradebackend/internal/domain"

// Named path sets, keyed by exchange then set name. Each path is a
// compile-time-constant 3-leg cycle; step sides are fixed per spec §9's
// warning to "cross-check each path's steps[].side against the sequence
// string and not invert."
var pathSets = map[string]map[string][]domain.TriangularPath{
	"valr": {
		"SET_1_ETH_FOCUS": {
			{
				ID: "valr-set1-usdt-btc-zar", Exchange: "valr", Set: "SET_1_ETH_FOCUS",
				Pairs:    [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"},
				Sequence: "USDT->BTC->ZAR->USDT",
				Steps: [3]domain.PathStep{
					{Pair: "BTCUSDT", Side: domain.StepBuy},
					{Pair: "BTCZAR", Side: domain.StepSell},
					{Pair: "USDTZAR", Side: domain.StepBuy},
				},
			},
			{
				ID: "valr-set1-usdt-eth-zar", Exchange: "valr", Set: "SET_1_ETH_FOCUS",
				Pairs:    [3]string{"ETHUSDT", "ETHZAR", "USDTZAR"},
				Sequence: "USDT->ETH->ZAR->USDT",
				Steps: [3]domain.PathStep{
					{Pair: "ETHUSDT", Side: domain.StepBuy},
					{Pair: "ETHZAR", Side: domain.StepSell},
					{Pair: "USDTZAR", Side: domain.StepBuy},
				},
			},
		},
	},
	"luno": {
		"SET_1_ETH_FOCUS": {
			{
				ID: "luno-set1-usdt-btc-zar", Exchange: "luno", Set: "SET_1_ETH_FOCUS",
				Pairs:    [3]string{"BTCUSDT", "BTCZAR", "USDTZAR"},
				Sequence: "USDT->BTC->ZAR->USDT",
				Steps: [3]domain.PathStep{
					{Pair: "BTCUSDT", Side: domain.StepBuy},
					{Pair: "BTCZAR", Side: domain.StepSell},
					{Pair: "USDTZAR", Side: domain.StepBuy},
				},
			},
		},
	},
	"binance": {
		"SET_1_ETH_FOCUS": {
			{
				ID: "binance-set1-usdt-eth-btc", Exchange: "binance", Set: "SET_1_ETH_FOCUS",
				Pairs:    [3]string{"ETHUSDT", "ETHBTC", "BTCUSDT"},
				Sequence: "USDT->ETH->BTC->USDT",
				Steps: [3]domain.PathStep{
					{Pair: "ETHUSDT", Side: domain.StepBuy},
					{Pair: "ETHBTC", Side: domain.StepSell},
					{Pair: "BTCUSDT", Side: domain.StepSell},
				},
			},
		},
		"SET_2_ALT_FOCUS": {
			{
				ID: "binance-set2-usdt-bnb-btc", Exchange: "binance", Set: "SET_2_ALT_FOCUS",
				Pairs:    [3]string{"BNBUSDT", "BNBBTC", "BTCUSDT"},
				Sequence: "USDT->BNB->BTC->USDT",
				Steps: [3]domain.PathStep{
					{Pair: "BNBUSDT", Side: domain.StepBuy},
					{Pair: "BNBBTC", Side: domain.StepSell},
					{Pair: "BTCUSDT", Side: domain.StepSell},
				},
			},
		},
	},
	"kraken": {
		"SET_1_ETH_FOCUS": {
			{
				ID: "kraken-set1-usd-eth-btc", Exchange: "kraken", Set: "SET_1_ETH_FOCUS",
				Pairs:    [3]string{"ETHUSD", "ETHBTC", "BTCUSD"},
				Sequence: "USD->ETH->BTC->USD",
				Steps: [3]domain.PathStep{
					{Pair: "ETHUSD", Side: domain.StepBuy},
					{Pair: "ETHBTC", Side: domain.StepSell},
					{Pair: "BTCUSD", Side: domain.StepSell},
				},
			},
		},
	},
}

// PathSet returns the named path set for exchangeName, or an error if
// neither the exchange nor the set is known.
func PathSet(exchangeName, setName string) ([]domain.TriangularPath, error) {
	sets, ok := pathSets[exchangeName]
	if !ok {
		return nil, &UnknownSetError{Exchange: exchangeName, Set: setName}
	}
	paths, ok := sets[setName]
	if !ok {
		return nil, &UnknownSetError{Exchange: exchangeName, Set: setName}
	}
	return paths, nil
}

// ListSetNames returns every path-set name defined for exchangeName.
func ListSetNames(exchangeName string) []string {
	sets := pathSets[exchangeName]
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	return names
}

// PathByID searches every set on exchangeName for a path with the given ID,
// the lookup the /triarb/execute handler uses to resolve a pathId request
// field before calling Executor.Execute.
func PathByID(exchangeName, pathID string) (domain.TriangularPath, error) {
	for _, paths := range pathSets[exchangeName] {
		for _, p := range paths {
			if p.ID == pathID {
				return p, nil
			}
		}
	}
	return domain.TriangularPath{}, &UnknownSetError{Exchange: exchangeName, Set: pathID}
}

// UnknownSetError is returned when an exchange or path-set/path-id name has
// no registered definition.
type UnknownSetError struct {
	Exchange string
	Set      string
}

func (e *UnknownSetError) Error() string {
	return "triarb: no path set/path " + e.Set + " registered for exchange " + e.Exchange
}
