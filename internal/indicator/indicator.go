// Package indicator implements the deterministic technical indicators the
// momentum strategy's IndicatorConfig can reference. Every function is
// stateless and allocation-light, generalizing the teacher's indicators.go
// (SMA/RSI/ZScore) to domain.Candle input and extending it with the
// remaining indicators momentum strategies commonly combine (EMA crossover,
// MACD, Bollinger Bands, Stochastic, ATR, OBV, volume spike).
//
// Indicator math runs in float64, not decimal.Decimal: these are statistical
// smoothers over price series, not money amounts, and the sqrt/division-heavy
// formulas below are what the teacher's own indicators.go uses. Money and
// order sizing stay in internal/money's decimal path.
package indicator

import (
	"math"

	"github.com/chidi150c/tradebackend/internal/domain"
)

func closes(c []domain.Candle) []float64 {
	out := make([]float64, len(c))
	for i, k := range c {
		out[i], _ = k.Close.Float64()
	}
	return out
}

func volumes(c []domain.Candle) []float64 {
	out := make([]float64, len(c))
	for i, k := range c {
		out[i], _ = k.Volume.Float64()
	}
	return out
}

// SMA returns the n-period simple moving average of Close, aligned to c.
// Indices before the first full window are NaN.
func SMA(c []domain.Candle, n int) []float64 {
	closeVals := closes(c)
	out := make([]float64, len(closeVals))
	if n <= 0 || len(closeVals) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := range closeVals {
		sum += closeVals[i]
		if i >= n {
			sum -= closeVals[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// EMA returns the n-period exponential moving average of Close, seeded with
// the SMA of the first n values.
func EMA(c []domain.Candle, n int) []float64 {
	closeVals := closes(c)
	out := make([]float64, len(closeVals))
	if n <= 0 || len(closeVals) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / (float64(n) + 1.0)
	var seed float64
	for i := range closeVals {
		if i < n-1 {
			out[i] = math.NaN()
			seed += closeVals[i]
			continue
		}
		if i == n-1 {
			seed += closeVals[i]
			out[i] = seed / float64(n)
			continue
		}
		out[i] = closeVals[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMACrossSignal reports whether the fast EMA is above (1), below (-1), or
// equal to (0) the slow EMA at the latest index — the building block for an
// "ema_crossover" entry logic.
func EMACrossSignal(c []domain.Candle, fastN, slowN int) int {
	if len(c) == 0 {
		return 0
	}
	fast := EMA(c, fastN)
	slow := EMA(c, slowN)
	i := len(c) - 1
	if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
		return 0
	}
	switch {
	case fast[i] > slow[i]:
		return 1
	case fast[i] < slow[i]:
		return -1
	default:
		return 0
	}
}

// MACD returns the MACD line, signal line, and histogram for the standard
// (fast, slow, signal) triple, typically (12, 26, 9).
func MACD(c []domain.Candle, fastN, slowN, signalN int) (macdLine, signalLine, histogram []float64) {
	fast := EMA(c, fastN)
	slow := EMA(c, slowN)
	macdLine = make([]float64, len(c))
	for i := range c {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			macdLine[i] = math.NaN()
			continue
		}
		macdLine[i] = fast[i] - slow[i]
	}
	signalLine = emaOfSeries(macdLine, signalN)
	histogram = make([]float64, len(c))
	for i := range c {
		if math.IsNaN(macdLine[i]) || math.IsNaN(signalLine[i]) {
			histogram[i] = math.NaN()
			continue
		}
		histogram[i] = macdLine[i] - signalLine[i]
	}
	return macdLine, signalLine, histogram
}

func emaOfSeries(series []float64, n int) []float64 {
	out := make([]float64, len(series))
	if n <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / (float64(n) + 1.0)
	started := false
	var seed float64
	count := 0
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if !started {
			seed += v
			count++
			if count < n {
				out[i] = math.NaN()
				continue
			}
			out[i] = seed / float64(n)
			started = true
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

// RSI returns the n-period Relative Strength Index using Wilder's smoothing,
// unchanged from the teacher's indicators.go formula.
func RSI(c []domain.Candle, n int) []float64 {
	closeVals := closes(c)
	out := make([]float64, len(closeVals))
	if n <= 0 || len(closeVals) == 0 {
		return out
	}
	var gain, loss float64
	for i := 1; i < len(closeVals); i++ {
		d := closeVals[i] - closeVals[i-1]
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				avgGain := gain / float64(n)
				avgLoss := loss / float64(n)
				rs := 0.0
				if avgLoss != 0 {
					rs = avgGain / avgLoss
				}
				out[i] = 100.0 - (100.0 / (1.0 + rs))
			}
		} else {
			if d > 0 {
				gain = (gain*float64(n-1) + d) / float64(n)
				loss = (loss * float64(n-1)) / float64(n)
			} else {
				gain = (gain * float64(n-1)) / float64(n)
				loss = (loss*float64(n-1) - d) / float64(n)
			}
			rs := 0.0
			if loss != 0 {
				rs = gain / loss
			}
			out[i] = 100.0 - (100.0 / (1.0 + rs))
		}
	}
	return out
}

// ZScore returns the rolling z-score of Close over window n, aligned to c.
func ZScore(c []domain.Candle, n int) []float64 {
	closeVals := closes(c)
	out := make([]float64, len(closeVals))
	if n <= 1 || len(closeVals) == 0 {
		return out
	}
	var sum, sumSq float64
	for i := range closeVals {
		x := closeVals[i]
		sum += x
		sumSq += x * x
		if i >= n {
			y := closeVals[i-n]
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := (sumSq / float64(n)) - (mean * mean)
			std := math.Sqrt(math.Max(variance, 1e-12))
			out[i] = (x - mean) / std
		} else {
			out[i] = 0
		}
	}
	return out
}

// BollingerBands returns the middle (SMA), upper, and lower bands for window
// n and width numStd standard deviations.
func BollingerBands(c []domain.Candle, n int, numStd float64) (mid, upper, lower []float64) {
	closeVals := closes(c)
	mid = SMA(c, n)
	upper = make([]float64, len(closeVals))
	lower = make([]float64, len(closeVals))
	var sum, sumSq float64
	for i := range closeVals {
		x := closeVals[i]
		sum += x
		sumSq += x * x
		if i >= n {
			y := closeVals[i-n]
			sum -= y
			sumSq -= y * y
		}
		if i >= n-1 {
			mean := sum / float64(n)
			variance := (sumSq / float64(n)) - (mean * mean)
			std := math.Sqrt(math.Max(variance, 0))
			upper[i] = mean + numStd*std
			lower[i] = mean - numStd*std
		} else {
			upper[i] = math.NaN()
			lower[i] = math.NaN()
		}
	}
	return mid, upper, lower
}

// Stochastic returns the %K and %D lines for window n (%D is a 3-period SMA
// of %K, the conventional default).
func Stochastic(c []domain.Candle, n int) (percentK, percentD []float64) {
	percentK = make([]float64, len(c))
	for i := range c {
		if i < n-1 {
			percentK[i] = math.NaN()
			continue
		}
		hi, lo := math.Inf(-1), math.Inf(1)
		for j := i - n + 1; j <= i; j++ {
			h, _ := c[j].High.Float64()
			l, _ := c[j].Low.Float64()
			if h > hi {
				hi = h
			}
			if l < lo {
				lo = l
			}
		}
		cl, _ := c[i].Close.Float64()
		if hi == lo {
			percentK[i] = 50
			continue
		}
		percentK[i] = (cl - lo) / (hi - lo) * 100
	}
	percentD = make([]float64, len(c))
	const dWindow = 3
	var sum float64
	valid := 0
	for i := range percentK {
		if math.IsNaN(percentK[i]) {
			percentD[i] = math.NaN()
			sum = 0
			valid = 0
			continue
		}
		sum += percentK[i]
		valid++
		if i >= dWindow {
			if !math.IsNaN(percentK[i-dWindow]) {
				sum -= percentK[i-dWindow]
			}
		}
		count := dWindow
		if valid < dWindow {
			percentD[i] = math.NaN()
			continue
		}
		percentD[i] = sum / float64(count)
	}
	return percentK, percentD
}

// ATR returns the n-period Average True Range using Wilder's smoothing.
func ATR(c []domain.Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		return out
	}
	trueRanges := make([]float64, len(c))
	for i := range c {
		h, _ := c[i].High.Float64()
		l, _ := c[i].Low.Float64()
		if i == 0 {
			trueRanges[i] = h - l
			continue
		}
		pc, _ := c[i-1].Close.Float64()
		trueRanges[i] = math.Max(h-l, math.Max(math.Abs(h-pc), math.Abs(l-pc)))
	}
	var sum float64
	for i, tr := range trueRanges {
		if i < n {
			sum += tr
			if i == n-1 {
				out[i] = sum / float64(n)
			}
			continue
		}
		out[i] = (out[i-1]*float64(n-1) + tr) / float64(n)
	}
	return out
}

// OBV returns the On-Balance Volume running total.
func OBV(c []domain.Candle) []float64 {
	closeVals := closes(c)
	volVals := volumes(c)
	out := make([]float64, len(c))
	for i := range c {
		if i == 0 {
			out[i] = volVals[i]
			continue
		}
		switch {
		case closeVals[i] > closeVals[i-1]:
			out[i] = out[i-1] + volVals[i]
		case closeVals[i] < closeVals[i-1]:
			out[i] = out[i-1] - volVals[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VolumeSpike reports whether the latest candle's volume exceeds its
// n-period average volume by factor, the condition a "volume_spike" entry
// logic checks.
func VolumeSpike(c []domain.Candle, n int, factor float64) bool {
	if len(c) < n+1 {
		return false
	}
	volVals := volumes(c)
	var sum float64
	for i := len(volVals) - n - 1; i < len(volVals)-1; i++ {
		sum += volVals[i]
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return false
	}
	return volVals[len(volVals)-1] > avg*factor
}
