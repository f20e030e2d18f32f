package broker

import (
	"errors"
	"testing"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		order   BracketOrder
		wantErr string
	}{
		{"ok", NewBracket("AAPL", 10, 150, 162, 144), ""},
		{"no symbol", NewBracket("", 10, 150, 162, 144), "symbol is required"},
		{"zero qty", NewBracket("AAPL", 0, 150, 162, 144), "quantity must be positive"},
		{"negative price", NewBracket("AAPL", 1, 150, 162, -1), "prices must be positive"},
		{"sub-cent stop", NewBracket("AAPL", 1, 150, 162, 0.004), "prices must be positive"},
		{"tp below entry", NewBracket("AAPL", 1, 150, 149, 144), "take profit 149 must be above entry 150"},
		{"stop above entry", NewBracket("AAPL", 1, 150, 162, 151), "stop loss 151 must be below entry 150"},
		{"equal after rounding", NewBracket("AAPL", 1, 150.001, 150.004, 144), "must be above entry"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.order.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInvalidOrder))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewBracketRoundsToCents(t *testing.T) {
	t.Parallel()

	o := NewBracket("X", 3, 10.126, 12.3449, 9.001)
	assert.Equal(t, "10.13", o.EntryPrice.StringFixed(2))
	assert.Equal(t, "12.34", o.TakeProfitPrice.StringFixed(2))
	assert.Equal(t, "9.00", o.StopLossPrice.StringFixed(2))
	assert.Equal(t, "30.39", o.Notional().StringFixed(2))
}

func TestFromPosition(t *testing.T) {
	t.Parallel()

	m := risk.NewManager(100_000, 0.01, 0.05)
	p, err := m.SizeDefault("AAPL", 150, 3)
	require.NoError(t, err)

	_, err = FromPosition(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidOrder))

	p.TakeProfit = m.TakeProfit(p.EntryPrice, p.StopLoss, 2)
	o, err := FromPosition(p)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", o.Symbol)
	assert.Equal(t, 33, o.Qty)
	assert.Equal(t, "162.00", o.TakeProfitPrice.StringFixed(2))
	assert.Equal(t, "144.00", o.StopLossPrice.StringFixed(2))

	zero, err := m.SizeDefault("AAPL", 150, 0)
	require.NoError(t, err)
	zero.TakeProfit = 160
	_, err = FromPosition(zero)
	assert.ErrorContains(t, err, "quantity must be positive")
}
