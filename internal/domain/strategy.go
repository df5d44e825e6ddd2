package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryLogic is the combinator policy for triggered indicators (spec §3, §4.2).
type EntryLogic string

const (
	EntryLogicAny1  EntryLogic = "any_1"
	EntryLogic2of3  EntryLogic = "2_of_3"
	EntryLogic3of4  EntryLogic = "3_of_4"
	EntryLogicAll   EntryLogic = "all"
)

// TakeProfitMode controls whether take-profit exits fire automatically.
type TakeProfitMode string

const (
	TakeProfitAuto   TakeProfitMode = "auto"
	TakeProfitManual TakeProfitMode = "manual"
)

// IndicatorConfig is one entry in Strategy.EntryIndicators.
type IndicatorConfig struct {
	Enabled bool
	Params  map[string]decimal.Decimal
}

// ExitRules bundles the price/time exit thresholds (spec §3).
type ExitRules struct {
	TakeProfitPercent decimal.Decimal
	StopLossPercent   decimal.Decimal
	MaxHoldHours      decimal.Decimal
	TakeProfitMode    TakeProfitMode
}

// Strategy is a user-authored momentum rule set (spec §3).
type Strategy struct {
	ID               int64
	UserID           int64
	Exchange         string
	Name             string
	Assets           []string // ordered base-symbol strings, length >= 1
	EntryIndicators  map[string]IndicatorConfig
	EntryLogic       EntryLogic
	ExitRules        ExitRules
	Timeframe        Interval
	MaxTradeAmount   decimal.Decimal // quote notional
	MaxOpenPositions int             // invariant: exactly 1
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate enforces the invariants spec.md §6 requires at creation/update time.
// It does not check cross-strategy asset-disjointness; that requires the
// store's view of sibling strategies and lives in the strategy service.
func (s Strategy) Validate() error {
	if len(s.Assets) == 0 {
		return ErrValidation{Field: "assets", Msg: "must declare at least one asset"}
	}
	if s.MaxOpenPositions > 1 {
		return ErrValidation{Field: "maxOpenPositions", Msg: "Max open positions must be 1"}
	}
	if s.MaxOpenPositions <= 0 {
		s.MaxOpenPositions = 1
	}
	for _, a := range s.Assets {
		if !assetCodePattern.MatchString(a) {
			return ErrValidation{Field: "assets", Msg: "invalid asset code: " + a}
		}
	}
	switch s.EntryLogic {
	case EntryLogicAny1, EntryLogic2of3, EntryLogic3of4, EntryLogicAll:
	default:
		return ErrValidation{Field: "entryLogic", Msg: "unknown entry logic: " + string(s.EntryLogic)}
	}
	return nil
}

// AssetsSet returns the strategy's assets as a set for disjointness checks.
func (s Strategy) AssetsSet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Assets))
	for _, a := range s.Assets {
		out[a] = struct{}{}
	}
	return out
}
