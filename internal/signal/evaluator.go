// Package signal implements the SignalEvaluator (spec §4.2): combining
// per-indicator boolean triggers per a strategy's entry_logic policy, and
// evaluating a live position's time/price exit conditions in priority order.
package signal

import (
	"log"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/indicator"
	"github.com/chidi150c/tradebackend/internal/money"
	"github.com/shopspring/decimal"
)

// Trigger records one indicator's name and whether it fired.
type Trigger struct {
	Name    string
	Fired   bool
	Skipped bool // true if the indicator could not be computed (insufficient data)
}

// EvaluateIndicators runs every enabled indicator in cfg against candles and
// returns one Trigger per enabled indicator (spec §4.2's six named
// indicators). A failing indicator's trigger is false and logged, never
// aborting the rest (spec §4.2: "this never aborts the strategy's cycle").
func EvaluateIndicators(candles []domain.Candle, cfg map[string]domain.IndicatorConfig) []Trigger {
	triggers := make([]Trigger, 0, len(cfg))
	for name, ic := range cfg {
		if !ic.Enabled {
			continue
		}
		fired, ok := evaluateOne(name, candles, ic.Params)
		if !ok {
			log.Printf("signal: indicator=%s skipped reason=insufficient_data_or_nan", name)
		}
		triggers = append(triggers, Trigger{Name: name, Fired: fired && ok, Skipped: !ok})
	}
	return triggers
}

func paramInt(params map[string]decimal.Decimal, key string, def int) int {
	if v, ok := params[key]; ok {
		return int(v.IntPart())
	}
	return def
}

func paramFloat(params map[string]decimal.Decimal, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		f, _ := v.Float64()
		return f
	}
	return def
}

func evaluateOne(name string, candles []domain.Candle, params map[string]decimal.Decimal) (fired bool, ok bool) {
	if len(candles) < 2 {
		return false, false
	}
	last := len(candles) - 1
	switch name {
	case "rsi":
		n := paramInt(params, "period", 14)
		threshold := paramFloat(params, "oversold", 30)
		series := indicator.RSI(candles, n)
		if last >= len(series) || series[last] == 0 {
			return false, false
		}
		return series[last] < threshold, true

	case "volume":
		n := paramInt(params, "period", 20)
		multiplier := paramFloat(params, "multiplier", 2.0)
		return indicator.VolumeSpike(candles, n, multiplier), true

	case "macd":
		fastN := paramInt(params, "fast", 12)
		slowN := paramInt(params, "slow", 26)
		signalN := paramInt(params, "signal", 9)
		macdLine, signalLine, _ := indicator.MACD(candles, fastN, slowN, signalN)
		if last < 1 || isNaN(macdLine[last]) || isNaN(signalLine[last]) || isNaN(macdLine[last-1]) || isNaN(signalLine[last-1]) {
			return false, false
		}
		wasBelow := macdLine[last-1] <= signalLine[last-1]
		nowAbove := macdLine[last] > signalLine[last]
		return wasBelow && nowAbove, true

	case "ema_crossover":
		fastN := paramInt(params, "fast", 9)
		slowN := paramInt(params, "slow", 21)
		fast := indicator.EMA(candles, fastN)
		slow := indicator.EMA(candles, slowN)
		if last < 1 || isNaN(fast[last]) || isNaN(slow[last]) || isNaN(fast[last-1]) || isNaN(slow[last-1]) {
			return false, false
		}
		wasLE := fast[last-1] <= slow[last-1]
		nowGT := fast[last] > slow[last]
		return wasLE && nowGT, true

	case "bollinger":
		n := paramInt(params, "period", 20)
		numStd := paramFloat(params, "num_std", 2.0)
		epsilonPct := paramFloat(params, "epsilon_percent", 0.5)
		_, _, lower := indicator.BollingerBands(candles, n, numStd)
		if last >= len(lower) || isNaN(lower[last]) {
			return false, false
		}
		closeF, _ := candles[last].Close.Float64()
		if lower[last] == 0 {
			return false, false
		}
		distPct := (closeF - lower[last]) / lower[last] * 100
		return distPct >= -epsilonPct && distPct <= epsilonPct, true

	case "stochastic":
		n := paramInt(params, "period", 14)
		threshold := paramFloat(params, "oversold", 20)
		k, _ := indicator.Stochastic(candles, n)
		if last >= len(k) || isNaN(k[last]) {
			return false, false
		}
		return k[last] < threshold, true

	default:
		log.Printf("signal: unknown indicator %q treated as non-firing", name)
		return false, false
	}
}

func isNaN(f float64) bool { return f != f }

// ShouldEnter applies entry_logic (spec §4.2's four combinator definitions)
// to a slice of Triggers. Skipped indicators still count toward
// total_enabled_count but never toward triggered_count.
func ShouldEnter(triggers []Trigger, logic domain.EntryLogic) bool {
	enabled := len(triggers)
	triggered := 0
	for _, t := range triggers {
		if t.Fired {
			triggered++
		}
	}
	if enabled == 0 {
		return false
	}
	switch logic {
	case domain.EntryLogicAll:
		return triggered == enabled
	case domain.EntryLogicAny1:
		return triggered >= 1
	case domain.EntryLogic2of3:
		switch {
		case enabled >= 3:
			return triggered >= 2
		case enabled == 2:
			return triggered == 2
		default: // enabled == 1
			return triggered == 1
		}
	case domain.EntryLogic3of4:
		if enabled >= 4 {
			return triggered >= 3
		}
		return triggered == enabled
	default:
		return false
	}
}

// ExitDecision is the outcome of EvaluateExit.
type ExitDecision struct {
	ShouldExit bool
	Reason     domain.ExitReason
	PnLPercent decimal.Decimal
}

// EvaluateExit checks a position's exit conditions in spec §4.2's fixed
// priority order: take_profit (if mode=auto) → stop_loss → max_hold_time.
func EvaluateExit(pos domain.Position, currentPrice decimal.Decimal, rules domain.ExitRules, now time.Time) ExitDecision {
	pnlPercent := money.PercentChange(pos.EntryPrice, currentPrice)
	hoursOpen := decimal.NewFromFloat(now.Sub(pos.EntryTime).Hours())

	if rules.TakeProfitMode == domain.TakeProfitAuto && pnlPercent.GreaterThanOrEqual(rules.TakeProfitPercent) {
		return ExitDecision{ShouldExit: true, Reason: domain.ExitTakeProfit, PnLPercent: pnlPercent}
	}
	if pnlPercent.LessThanOrEqual(rules.StopLossPercent.Neg()) {
		return ExitDecision{ShouldExit: true, Reason: domain.ExitStopLoss, PnLPercent: pnlPercent}
	}
	if hoursOpen.GreaterThanOrEqual(rules.MaxHoldHours) {
		return ExitDecision{ShouldExit: true, Reason: domain.ExitMaxHoldTime, PnLPercent: pnlPercent}
	}
	return ExitDecision{ShouldExit: false, PnLPercent: pnlPercent}
}
