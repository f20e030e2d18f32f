package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsKindAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := Unavailable("provider.history", "AAPL", cause)

	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "provider.history AAPL: data unavailable: connection reset", err.Error())
}

func TestErrorWrappedByFmt(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("run: %w", Invalid("risk.size", "price must be positive, got %v", -1.0))
	assert.ErrorIs(t, err, ErrInvalidOrder)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "risk.size", e.Op)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("x"), nil},
		{"sentinel", ErrRateLimited, ErrRateLimited},
		{"cache", Cache("scores.put", errors.New("disk full")), ErrCacheUnavailable},
		{"simulation", Simulation("backtest.run", "empty"), ErrSimulationData},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
