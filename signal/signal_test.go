package signal

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/screener/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) market.Series {
	s := market.Series{Symbol: "TEST"}
	for i, c := range closes {
		s.Bars = append(s.Bars, market.PriceBar{
			Symbol: "TEST",
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
		})
	}
	return s
}

func rising(n int) market.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return series(closes...)
}

func TestBuildSignalsForwardFill(t *testing.T) {
	t.Parallel()

	frame := NewFrame(series(10, 10, 10, 12, 13, 12.5, 11), 9)
	got := BuildSignalsWith(frame, 7, Params{TrendPeriod: 3, ATRPeriod: 2, StopMultiple: 2})

	assert.Equal(t, []bool{false, false, false, true, true, false, false}, got.Entry)
	assert.True(t, math.IsNaN(got.EntryPrice[2]))
	assert.Equal(t, 12.0, got.EntryPrice[3])
	assert.Equal(t, 13.0, got.EntryPrice[4])
	assert.Equal(t, 13.0, got.EntryPrice[5])
	assert.Equal(t, 13.0, got.EntryPrice[6])

	assert.InDelta(t, 1.25, got.ATR[5], 1e-9)
	assert.InDelta(t, 10.5, got.ATRStop[5], 1e-9)

	assert.Equal(t, []bool{false, false, false, false, false, false, true}, got.Exit)
	assert.True(t, got.ExitTrend[6])
	assert.False(t, got.ExitVol[6])
}

func TestBuildSignalsVolatilityExit(t *testing.T) {
	t.Parallel()

	frame := NewFrame(series(10, 10, 10, 20, 19), 9)
	frame.Score[4] = 0 // quality lapses on the last bar

	got := BuildSignalsWith(frame, 7, Params{TrendPeriod: 4, ATRPeriod: 1, StopMultiple: 0.5})

	assert.True(t, got.Entry[3])
	assert.False(t, got.Entry[4])
	assert.Equal(t, 20.0, got.EntryPrice[4])
	assert.InDelta(t, 19.25, got.ATRStop[4], 1e-9)
	assert.False(t, got.ExitTrend[4])
	assert.True(t, got.ExitVol[4])
	assert.True(t, got.Exit[4])
}

func TestBuildSignalsEntryNeedsBaseline(t *testing.T) {
	t.Parallel()

	got := BuildSignals(NewFrame(rising(260), 9), 7)
	require.Len(t, got.Entry, 260)

	for i, e := range got.Entry {
		if e {
			assert.False(t, math.IsNaN(got.TrendBaseline[i]), "entry at %d without baseline", i)
			assert.GreaterOrEqual(t, i, 199)
		}
	}
	assert.False(t, got.Entry[198])
	assert.True(t, got.Entry[199])
	assert.True(t, math.IsNaN(got.TrendBaseline[198]))
	assert.True(t, math.IsNaN(got.ATR[12]))
	assert.False(t, math.IsNaN(got.ATR[13]))
}

func TestBuildSignalsShortHistory(t *testing.T) {
	t.Parallel()

	got := BuildSignals(NewFrame(rising(150), 9), 0)
	for i := range got.Entry {
		assert.False(t, got.Entry[i])
		assert.False(t, got.ExitVol[i])
		assert.True(t, math.IsNaN(got.ATRStop[i]))
	}
}

func TestBuildSignalsBelowThreshold(t *testing.T) {
	t.Parallel()

	got := BuildSignals(NewFrame(rising(220), 5), 7)
	for _, e := range got.Entry {
		assert.False(t, e)
	}
}

func TestBuildSignalsNoLookahead(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 240)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/15) + float64(i)/10
	}
	full := BuildSignals(NewFrame(series(closes...), 8), 7)

	for _, cut := range []int{200, 215, 239} {
		prefix := BuildSignals(NewFrame(series(closes[:cut]...), 8), 7)
		for i := 0; i < cut; i++ {
			assert.Equal(t, full.Entry[i], prefix.Entry[i], "entry %d cut %d", i, cut)
			assert.Equal(t, full.Exit[i], prefix.Exit[i], "exit %d cut %d", i, cut)
		}
	}
}

func TestBuildSignalsIsPure(t *testing.T) {
	t.Parallel()

	frame := NewFrame(rising(210), 9)
	before := append([]float64(nil), frame.Score...)
	_ = BuildSignals(frame, 7)
	assert.Equal(t, before, frame.Score)
	assert.Nil(t, frame.Entry)
}

func TestNewFrameWithScores(t *testing.T) {
	t.Parallel()

	s := series(1, 2, 3, 4, 5)
	f := NewFrameWithScores(s, []market.Score{
		{Symbol: "TEST", Date: base.AddDate(0, 0, 3), Value: 8},
		{Symbol: "TEST", Date: base.AddDate(0, 0, 1).Add(15 * time.Hour), Value: 6},
	})

	assert.True(t, math.IsNaN(f.Score[0]))
	assert.Equal(t, []float64{6, 6, 8, 8}, f.Score[1:])
}

func TestLatestOf(t *testing.T) {
	t.Parallel()

	_, ok := LatestOf(FactorFrame{})
	assert.False(t, ok)

	got := BuildSignals(NewFrame(rising(205), 9), 7)
	l, ok := LatestOf(got)
	require.True(t, ok)
	assert.Equal(t, 304.0, l.Close)
	assert.True(t, l.AboveTrend)
	assert.True(t, l.Entry)
	assert.InDelta(t, 1.5, l.ATR, 1e-9)
}
