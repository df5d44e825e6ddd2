package signal

import (
	"testing"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestShouldEnter_BoundaryScenario1(t *testing.T) {
	triggers := []Trigger{{Name: "rsi", Fired: true}, {Name: "volume", Fired: true}, {Name: "macd", Fired: false}}
	assert.True(t, ShouldEnter(triggers, domain.EntryLogic2of3))

	triggers = []Trigger{{Name: "rsi", Fired: true}, {Name: "volume", Fired: false}, {Name: "macd", Fired: false}}
	assert.False(t, ShouldEnter(triggers, domain.EntryLogic2of3))
}

// TestShouldEnter_Combinators property-tests every (enabled, triggered) pair
// against the four combinator definitions (spec §4.2).
func TestShouldEnter_Combinators(t *testing.T) {
	for enabled := 0; enabled <= 6; enabled++ {
		for triggered := 0; triggered <= enabled; triggered++ {
			triggers := make([]Trigger, enabled)
			for i := 0; i < enabled; i++ {
				triggers[i] = Trigger{Fired: i < triggered}
			}

			gotAll := ShouldEnter(triggers, domain.EntryLogicAll)
			wantAll := enabled > 0 && triggered == enabled
			assert.Equalf(t, wantAll, gotAll, "all: enabled=%d triggered=%d", enabled, triggered)

			gotAny1 := ShouldEnter(triggers, domain.EntryLogicAny1)
			wantAny1 := enabled > 0 && triggered >= 1
			assert.Equalf(t, wantAny1, gotAny1, "any_1: enabled=%d triggered=%d", enabled, triggered)

			got2of3 := ShouldEnter(triggers, domain.EntryLogic2of3)
			var want2of3 bool
			switch {
			case enabled == 0:
				want2of3 = false
			case enabled >= 3:
				want2of3 = triggered >= 2
			case enabled == 2:
				want2of3 = triggered == 2
			default:
				want2of3 = triggered == 1
			}
			assert.Equalf(t, want2of3, got2of3, "2_of_3: enabled=%d triggered=%d", enabled, triggered)

			got3of4 := ShouldEnter(triggers, domain.EntryLogic3of4)
			var want3of4 bool
			switch {
			case enabled == 0:
				want3of4 = false
			case enabled >= 4:
				want3of4 = triggered >= 3
			default:
				want3of4 = triggered == enabled
			}
			assert.Equalf(t, want3of4, got3of4, "3_of_4: enabled=%d triggered=%d", enabled, triggered)
		}
	}
}

func TestEvaluateExit_Priority(t *testing.T) {
	rules := domain.ExitRules{
		TakeProfitPercent: dec(3),
		StopLossPercent:   dec(5),
		MaxHoldHours:      dec(24),
		TakeProfitMode:    domain.TakeProfitAuto,
	}
	entryTime := time.Now()
	pos := domain.Position{EntryPrice: dec(100), EntryTime: entryTime}

	d := EvaluateExit(pos, dec(105), rules, entryTime.Add(30*time.Minute))
	assert.True(t, d.ShouldExit)
	assert.Equal(t, domain.ExitTakeProfit, d.Reason)

	d = EvaluateExit(pos, dec(94), rules, entryTime.Add(30*time.Minute))
	assert.True(t, d.ShouldExit)
	assert.Equal(t, domain.ExitStopLoss, d.Reason)

	d = EvaluateExit(pos, dec(101), rules, entryTime.Add(25*time.Hour))
	assert.True(t, d.ShouldExit)
	assert.Equal(t, domain.ExitMaxHoldTime, d.Reason)

	manualRules := rules
	manualRules.TakeProfitMode = domain.TakeProfitManual
	d = EvaluateExit(pos, dec(105), manualRules, entryTime.Add(30*time.Minute))
	assert.False(t, d.ShouldExit)
}
