package market

import (
	"math"
	"time"
)

// PriceBar is one daily OHLCV record for a symbol. Bars are immutable once
// recorded by the price provider.
type PriceBar struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Date   time.Time `json:"date" yaml:"date"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). Pass NaN for
// prevClose on the first bar of a series; the range is then high-low.
func TrueRange(b PriceBar, prevClose float64) float64 {
	hl := b.High - b.Low
	if math.IsNaN(prevClose) {
		return hl
	}
	hc := math.Abs(b.High - prevClose)
	lc := math.Abs(b.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// Score is a fundamental quality score for one symbol on one calendar day.
// Value is either 0..9 (nine boolean checks summed) or 0..100 (continuous).
type Score struct {
	Symbol string         `json:"symbol" yaml:"symbol"`
	Date   time.Time      `json:"date" yaml:"date"`
	Value  float64        `json:"value" yaml:"value"`
	Detail map[string]any `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Day truncates t to midnight UTC; scores and cache rows are keyed by day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
