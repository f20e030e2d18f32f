package market

import (
	"fmt"
	"math"
	"time"
)

// Series is the ordered bar history of one symbol.
type Series struct {
	Symbol string
	Bars   []PriceBar
}

func (s Series) Len() int { return len(s.Bars) }

// Validate checks the series is non-empty, strictly increasing in date and
// carries finite, positive prices with low <= high.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("%s: empty series", s.Symbol)
	}
	var prev time.Time
	for i, b := range s.Bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%s: bar %d (%s): bad price %v", s.Symbol, i, b.Date.Format("2006-01-02"), v)
			}
		}
		if b.Low > b.High {
			return fmt.Errorf("%s: bar %d (%s): low %v above high %v", s.Symbol, i, b.Date.Format("2006-01-02"), b.Low, b.High)
		}
		if i > 0 && !b.Date.After(prev) {
			return fmt.Errorf("%s: bar %d (%s): dates not increasing", s.Symbol, i, b.Date.Format("2006-01-02"))
		}
		prev = b.Date
	}
	return nil
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Dates returns the date column.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Between returns the bars whose date is within [start, end]. A zero start or
// end leaves that side open.
func (s Series) Between(start, end time.Time) Series {
	out := Series{Symbol: s.Symbol}
	for _, b := range s.Bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// Last returns the most recent bar.
func (s Series) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
