package risk

import (
	"errors"
	"testing"

	"github.com/rustyeddy/screener/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSizer(t *testing.T) {
	t.Parallel()

	m := NewManager(10_000, 0.01, 0.05)

	capped, err := NewSizer("capped", m, 2)
	require.NoError(t, err)
	assert.Equal(t, SizerCapped, capped.Name())

	def, err := NewSizer("", m, 0)
	require.NoError(t, err)
	assert.Equal(t, SizerCapped, def.Name())

	dollar, err := NewSizer("dollar", m, 0)
	require.NoError(t, err)
	assert.Equal(t, SizerDollar, dollar.Name())

	_, err = NewSizer("kelly", m, 0)
	assert.ErrorContains(t, err, `unknown sizer "kelly"`)
}

func TestStrategiesDiffer(t *testing.T) {
	t.Parallel()

	m := NewManager(10_000, 0.01, 0.05)
	capped, _ := NewSizer(SizerCapped, m, 2)
	dollar, _ := NewSizer(SizerDollar, m, 0)

	cp, err := capped.Size("X", 100, 2)
	require.NoError(t, err)
	dp, err := dollar.Size("X", 100, 2)
	require.NoError(t, err)

	// Capped: 100/4 = 25 shares, trimmed to 500/100 = 5.
	assert.Equal(t, 5, cp.Shares)
	// Dollar: 2500 allocated, 25 shares, no position cap.
	assert.Equal(t, 25, dp.Shares)
	assert.Equal(t, 2500.0, dp.DollarAmount)
	assert.Equal(t, 96.0, dp.StopLoss)
	assert.InDelta(t, 100.0, dp.RiskAmount, 1e-9)
	assert.InDelta(t, 0.01, dp.RiskPct, 1e-12)
}

func TestDollarRiskSizerZeroATR(t *testing.T) {
	t.Parallel()

	p, err := DollarRiskSizer{AccountSize: 10_000}.Size("X", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Shares)
	assert.False(t, p.Tradable())
}

func TestDollarRiskSizerInvalid(t *testing.T) {
	t.Parallel()

	_, err := DollarRiskSizer{AccountSize: 10_000}.Size("X", -1, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidOrder))
}
