package config

import "time"

// Config holds every runtime knob the two engines and the adapter layer use.
// It generalizes the teacher's single-product Config into the multi-user,
// multi-exchange settings spec.md §6 calls out.
type Config struct {
	// Storage
	DatabaseURL string

	// Ops
	Port int

	// MomentumWorker scheduling (spec §4.3, §5)
	WorkerTickInterval   time.Duration
	RotationThreshold    int // assets length above which rotation kicks in (default 30)
	RotationBatch        int // sliding window size (default 25)
	ParallelBatchSize    int // concurrent signal evaluations per strategy (default 5)
	MinCandlesForSignal  int // minimum candles required before evaluating indicators (default 100)
	MinCandlesIndicators int // minimum candles the indicator engine itself requires (default 50)

	// Exchange adapter defaults
	DefaultMinRequestInterval time.Duration
	OrderTimeout              time.Duration
	MarketDataTimeout         time.Duration

	// TriArb
	DefaultSlippageTolerance float64 // percent, default 0.5
	TriArbInterLegDelay      time.Duration
	TriArbExecLegTimeout     time.Duration

	// Execution cooldowns per exchange, in milliseconds. Populated with the
	// spec §4.6 table; callers may override via env for testing.
	ExecutionCooldownMS map[string]int64

	// Universal-market-data-source policy (spec §4.1, a documented config flag,
	// not a requirement): when set, momentum candle fetches for signal detection
	// use CandleSourceExchange regardless of the strategy's trading exchange.
	UseUniversalCandleSource bool
	CandleSourceExchange     string

	DryRun bool
}

// Default cooldowns in milliseconds, per spec §4.6.
func defaultCooldowns() map[string]int64 {
	m := map[string]int64{
		"valr":     30000,
		"luno":     30000,
		"chainex":  30000,
		"binance":  15000,
		"bybit":    15000,
		"okx":      15000,
		"kucoin":   15000,
		"coinbase": 15000,
		"kraken":   20000,
	}
	return m
}

// Load reads process environment (after hydrating it from .env files) and
// returns a Config with the teacher's sane-default-on-missing-key behavior.
func Load() Config {
	loadDotEnv()

	cooldowns := defaultCooldowns()
	// Allow a single override knob for ad-hoc testing; per-venue overrides can
	// be layered on by the caller after Load() returns.
	if override := getEnvInt("DEFAULT_EXECUTION_COOLDOWN_MS", 0); override > 0 {
		for k := range cooldowns {
			cooldowns[k] = int64(override)
		}
	}

	return Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/tradebackend?sslmode=disable"),
		Port:        getEnvInt("PORT", 8080),

		WorkerTickInterval:   time.Duration(getEnvInt("WORKER_TICK_SECONDS", 60)) * time.Second,
		RotationThreshold:    getEnvInt("ROTATION_THRESHOLD", 30),
		RotationBatch:        getEnvInt("ROTATION_BATCH", 25),
		ParallelBatchSize:    getEnvInt("PARALLEL_BATCH_SIZE", 5),
		MinCandlesForSignal:  getEnvInt("MIN_CANDLES_FOR_SIGNAL", 100),
		MinCandlesIndicators: getEnvInt("MIN_CANDLES_INDICATORS", 50),

		DefaultMinRequestInterval: time.Duration(getEnvInt("DEFAULT_MIN_REQUEST_INTERVAL_MS", 200)) * time.Millisecond,
		OrderTimeout:              time.Duration(getEnvInt("ORDER_TIMEOUT_SECONDS", 30)) * time.Second,
		MarketDataTimeout:         time.Duration(getEnvInt("MARKET_DATA_TIMEOUT_SECONDS", 10)) * time.Second,

		DefaultSlippageTolerance: getEnvFloat("DEFAULT_SLIPPAGE_TOLERANCE_PCT", 0.5),
		TriArbInterLegDelay:      time.Duration(getEnvInt("TRIARB_INTER_REQUEST_DELAY_MS", 5000)) * time.Millisecond,
		TriArbExecLegTimeout:     time.Duration(getEnvInt("TRIARB_LEG_TIMEOUT_SECONDS", 30)) * time.Second,

		ExecutionCooldownMS: cooldowns,

		UseUniversalCandleSource: getEnvBool("USE_UNIVERSAL_CANDLE_SOURCE", false),
		CandleSourceExchange:     getEnv("CANDLE_SOURCE_EXCHANGE", "binance"),

		DryRun: getEnvBool("DRY_RUN", true),
	}
}

// CooldownFor returns the configured cooldown for an exchange, falling back to
// the spec's 20s "others" default (§4.6).
func (c Config) CooldownFor(exchange string) time.Duration {
	if ms, ok := c.ExecutionCooldownMS[exchange]; ok {
		return time.Duration(ms) * time.Millisecond
	}
	return 20000 * time.Millisecond
}
