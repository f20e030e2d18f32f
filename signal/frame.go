// Package signal turns a quality score and daily bars into trend-filtered
// entry and exit signals.
package signal

import (
	"math"
	"sort"

	"github.com/rustyeddy/screener/market"
)

// FactorFrame holds one symbol's bars with the per-bar score and every
// derived column. Undefined values are NaN. All slices are aligned with Bars.
type FactorFrame struct {
	Symbol string
	Bars   []market.PriceBar
	Score  []float64

	TrendBaseline []float64
	ATR           []float64
	EntryPrice    []float64
	ATRStop       []float64

	Entry     []bool
	Exit      []bool
	ExitTrend []bool
	ExitVol   []bool
}

// NewFrame builds a frame that applies one score to every bar.
func NewFrame(s market.Series, score float64) FactorFrame {
	f := FactorFrame{Symbol: s.Symbol, Bars: s.Bars, Score: make([]float64, len(s.Bars))}
	for i := range f.Score {
		f.Score[i] = score
	}
	return f
}

// NewFrameWithScores aligns dated scores to bars. Each bar takes the latest
// score dated on or before it; bars before the first score get NaN.
func NewFrameWithScores(s market.Series, scores []market.Score) FactorFrame {
	sorted := append([]market.Score(nil), scores...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	f := FactorFrame{Symbol: s.Symbol, Bars: s.Bars, Score: make([]float64, len(s.Bars))}
	j := -1
	for i, b := range s.Bars {
		day := market.Day(b.Date)
		for j+1 < len(sorted) && !market.Day(sorted[j+1].Date).After(day) {
			j++
		}
		if j < 0 {
			f.Score[i] = math.NaN()
			continue
		}
		f.Score[i] = sorted[j].Value
	}
	return f
}

func (f FactorFrame) Len() int { return len(f.Bars) }

// Closes returns the close column.
func (f FactorFrame) Closes() []float64 {
	return market.Series{Symbol: f.Symbol, Bars: f.Bars}.Closes()
}

// Last returns the index of the final bar, or -1 for an empty frame.
func (f FactorFrame) Last() int { return len(f.Bars) - 1 }

func (f FactorFrame) scoreAt(i int) float64 {
	if i >= len(f.Score) {
		return math.NaN()
	}
	return f.Score[i]
}
