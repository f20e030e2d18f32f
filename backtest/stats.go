package backtest

import "math"

// TradingDays annualises daily Sharpe ratios.
const TradingDays = 252

// TotalReturnPct is (final/initial - 1) * 100.
func TotalReturnPct(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (final/initial - 1) * 100
}

// MaxDrawdownPct is the most negative distance from the running peak, in
// percent. It is 0 for a curve that never falls.
func MaxDrawdownPct(equity []float64) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak * 100; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// Returns is the percent change of the equity curve as fractions; one
// shorter than the curve.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i]/prev-1)
	}
	return out
}

// SharpeRatio is sqrt(252) * mean / sample std of daily returns. It returns 0
// when fewer than two returns exist or the std is 0.
func SharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return math.Sqrt(TradingDays) * mean / std
}
