package signal

import (
	"math"

	"github.com/rustyeddy/screener/indicators"
)

// Params controls the trend and volatility filters.
type Params struct {
	TrendPeriod  int     `json:"trend_period" yaml:"trend_period"`
	ATRPeriod    int     `json:"atr_period" yaml:"atr_period"`
	StopMultiple float64 `json:"stop_multiple" yaml:"stop_multiple"`
}

// DefaultParams is SMA-200, ATR-14 and a 2xATR stop.
func DefaultParams() Params {
	return Params{TrendPeriod: 200, ATRPeriod: 14, StopMultiple: 2.0}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.TrendPeriod <= 0 {
		p.TrendPeriod = d.TrendPeriod
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = d.ATRPeriod
	}
	if p.StopMultiple <= 0 {
		p.StopMultiple = d.StopMultiple
	}
	return p
}

// BuildSignals computes the signal columns with the default parameters.
func BuildSignals(frame FactorFrame, threshold float64) FactorFrame {
	return BuildSignalsWith(frame, threshold, DefaultParams())
}

// BuildSignalsWith computes the derived columns in time order. Every value at
// bar t depends only on bars 0..t. The input frame is not modified.
//
// An entry needs score >= threshold and close above the trend baseline. The
// entry price is carried forward from the latest entry bar and sets the ATR
// stop. An exit fires when close falls below the baseline or the stop.
func BuildSignalsWith(frame FactorFrame, threshold float64, p Params) FactorFrame {
	p = p.withDefaults()
	n := len(frame.Bars)

	out := FactorFrame{
		Symbol:     frame.Symbol,
		Bars:       frame.Bars,
		Score:      make([]float64, n),
		EntryPrice: make([]float64, n),
		ATRStop:    make([]float64, n),
		Entry:      make([]bool, n),
		Exit:       make([]bool, n),
		ExitTrend:  make([]bool, n),
		ExitVol:    make([]bool, n),
	}

	out.TrendBaseline = indicators.Series(indicators.NewMA(p.TrendPeriod), frame.Bars)
	out.ATR = indicators.Series(indicators.NewATR(p.ATRPeriod), frame.Bars)

	entryPrice := math.NaN()
	for t, b := range frame.Bars {
		score := frame.scoreAt(t)
		out.Score[t] = score
		c := b.Close
		base := out.TrendBaseline[t]

		// NaN comparisons are false, so no entry before the baseline exists.
		out.Entry[t] = score >= threshold && c > base
		if out.Entry[t] {
			entryPrice = c
		}
		out.EntryPrice[t] = entryPrice
		out.ATRStop[t] = entryPrice - p.StopMultiple*out.ATR[t]

		out.ExitTrend[t] = c < base
		out.ExitVol[t] = c < out.ATRStop[t]
		out.Exit[t] = out.ExitTrend[t] || out.ExitVol[t]
	}
	return out
}

// Latest summarises the final bar of a built frame.
type Latest struct {
	Symbol        string
	Close         float64
	Score         float64
	TrendBaseline float64
	ATR           float64
	Entry         bool
	Exit          bool
	AboveTrend    bool
}

// LatestOf returns the last bar's signal state. ok is false for an empty frame.
func LatestOf(f FactorFrame) (Latest, bool) {
	i := f.Last()
	if i < 0 || i >= len(f.TrendBaseline) {
		return Latest{}, false
	}
	c := f.Bars[i].Close
	return Latest{
		Symbol:        f.Symbol,
		Close:         c,
		Score:         f.Score[i],
		TrendBaseline: f.TrendBaseline[i],
		ATR:           f.ATR[i],
		Entry:         f.Entry[i],
		Exit:          f.Exit[i],
		AboveTrend:    c > f.TrendBaseline[i],
	}, true
}
