package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         Inputs
		wantShares int
		wantRisk   float64
		wantCapped bool
	}{
		{
			name:       "risk based, capped by position limit",
			in:         Inputs{Equity: 10_000, RiskPct: 0.01, EntryPrice: 100, StopPrice: 95, PositionCap: 0.05},
			wantShares: 5,
			wantRisk:   25,
			wantCapped: true,
		},
		{
			name:       "risk based, no cap",
			in:         Inputs{Equity: 10_000, RiskPct: 0.01, EntryPrice: 100, StopPrice: 95},
			wantShares: 20,
			wantRisk:   100,
		},
		{
			name:       "floors fractional shares",
			in:         Inputs{Equity: 100_000, RiskPct: 0.01, EntryPrice: 50, StopPrice: 44},
			wantShares: 166,
			wantRisk:   996,
		},
		{
			name:       "stop above entry",
			in:         Inputs{Equity: 2000, RiskPct: 0.005, EntryPrice: 1.0, StopPrice: 1.01},
			wantShares: 0,
		},
		{
			name:       "zero width stop",
			in:         Inputs{Equity: 2000, RiskPct: 0.005, EntryPrice: 10, StopPrice: 10, PositionCap: 0.05},
			wantShares: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Calculate(tt.in)
			assert.Equal(t, tt.wantShares, got.Shares)
			assert.InDelta(t, tt.wantRisk, got.RiskAmount, 1e-9)
			assert.Equal(t, tt.wantCapped, got.Capped)
			assert.InDelta(t, float64(got.Shares)*tt.in.EntryPrice, got.DollarAmount, 1e-9)
		})
	}
}

func TestCalcHelpers(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(100, 95, 110), 1e-12)
	assert.Equal(t, 0.0, RR(100, 100, 110))
	assert.InDelta(t, 0.01, RiskPct(100, 10_000), 1e-12)
	assert.True(t, RiskPct(1, 0) > 1e300)
	assert.InDelta(t, 50.0, PlannedRisk(10, 100, 95), 1e-12)

	assert.Equal(t, 120.0, TakeProfit(100, 90, 2))
	assert.Equal(t, 130.0, TakeProfit(100, 90, 3))
}

func TestDollarSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2500.0, DollarSize(100, 2, 10_000, 0.01))
	assert.Equal(t, 0.0, DollarSize(100, 0, 10_000, 0.01))
	assert.InDelta(t, 5000.0, DollarSize(100, 2, 10_000, 0.02), 1e-9)
}
