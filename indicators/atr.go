package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/market"
)

// ATRFunc calculates the Average True Range over the last period bars.
// Returns an error if there aren't enough bars for the period.
func ATRFunc(bars []market.PriceBar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}
	s, err := ATRSeries(bars, period)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}

// ATRSeries returns the rolling mean of true range aligned with bars. Entries
// before the period-th bar are NaN.
func ATRSeries(bars []market.PriceBar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	trs := TrueRanges(bars)
	return SMASeries(trs, period)
}

// TrueRanges returns the true range of every bar. The first bar has no prior
// close and uses high-low.
func TrueRanges(bars []market.PriceBar) []float64 {
	out := make([]float64, len(bars))
	prev := math.NaN()
	for i, b := range bars {
		out[i] = market.TrueRange(b, prev)
		prev = b.Close
	}
	return out
}
