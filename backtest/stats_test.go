package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalReturnPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 25.0, TotalReturnPct(100, 125), 1e-9)
	assert.InDelta(t, -10.0, TotalReturnPct(100, 90), 1e-9)
	assert.Equal(t, 0.0, TotalReturnPct(0, 90))
}

func TestMaxDrawdownPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"rising", []float64{1, 2, 3}, 0},
		{"single dip", []float64{100, 80, 120}, -20},
		{"deepest wins", []float64{100, 90, 150, 75, 160}, -50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, MaxDrawdownPct(tt.equity), 1e-9)
		})
	}
}

func TestReturns(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Returns([]float64{100}))
	got := Returns([]float64{100, 110, 99})
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, got, 1e-12)
}

func TestSharpeRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, SharpeRatio(nil))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.25, 0.25, 0.25}))

	// mean 0.01, sample std 0.01
	got := SharpeRatio([]float64{0.0, 0.01, 0.02})
	assert.InDelta(t, math.Sqrt(252), got, 1e-9)
}
