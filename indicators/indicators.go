// Package indicators provides the technical indicators behind the trend and
// volatility filters.
package indicators

import "github.com/rustyeddy/screener/market"

// Indicator computes a single streaming value from daily bars.
// It is deterministic and safe to use in screening and backtests.
type Indicator interface {
	// Name returns a stable identifier like "SMA(200)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar and updates internal state.
	Update(b market.PriceBar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, NaN until Ready().
	Value() float64
}

// Series runs ind over bars and returns one value per bar, NaN where the
// indicator was not yet ready. ind is reset first.
func Series(ind Indicator, bars []market.PriceBar) []float64 {
	ind.Reset()
	out := make([]float64, len(bars))
	for i, b := range bars {
		ind.Update(b)
		out[i] = ind.Value()
	}
	return out
}
