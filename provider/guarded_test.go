package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/retry"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyPrices fails the first n calls per symbol with err.
type flakyPrices struct {
	fails map[string]int
	err   error
	calls map[string]int
}

func newFlaky(err error, fails map[string]int) *flakyPrices {
	return &flakyPrices{fails: fails, err: err, calls: map[string]int{}}
}

func (f *flakyPrices) History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	f.calls[symbol]++
	if f.calls[symbol] <= f.fails[symbol] {
		return market.Series{}, f.err
	}
	return market.Series{Symbol: symbol, Bars: []market.PriceBar{{Symbol: symbol, Close: 1}}}, nil
}

func testGuarded(p PriceHistory, attempts int) *Guarded {
	return NewGuarded(nil, p, nil, GuardOptions{
		Policy: retry.Policy{
			Attempts: attempts,
			Delay:    time.Second,
			Sleep:    func(context.Context, time.Duration) error { return nil },
		},
		Logger: zerolog.Nop(),
	})
}

func TestGuardedRetriesRateLimit(t *testing.T) {
	t.Parallel()

	throttled := errs.New(errs.ErrRateLimited, "test", "AAPL", nil)
	f := newFlaky(throttled, map[string]int{"AAPL": 2})
	g := testGuarded(f, 3)

	s, err := g.History(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 3, f.calls["AAPL"])
}

func TestGuardedEscalatesToDataUnavailable(t *testing.T) {
	t.Parallel()

	throttled := errs.New(errs.ErrRateLimited, "test", "AAPL", nil)
	f := newFlaky(throttled, map[string]int{"AAPL": 10})
	g := testGuarded(f, 3)

	_, err := g.History(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDataUnavailable))
	assert.True(t, errors.Is(err, errs.ErrRateLimited))

	var ex *retry.ExhaustedError
	assert.True(t, errors.As(err, &ex))
	assert.Equal(t, 3, f.calls["AAPL"])
}

func TestGuardedDoesNotRetryMissingData(t *testing.T) {
	t.Parallel()

	missing := errs.Unavailable("test", "AAPL", fmt.Errorf("no file"))
	f := newFlaky(missing, map[string]int{"AAPL": 10})
	g := testGuarded(f, 3)

	_, err := g.History(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDataUnavailable))
	assert.Equal(t, 1, f.calls["AAPL"])
}

func TestGuardedBreakerOpens(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	f := newFlaky(boom, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1})
	g := testGuarded(f, 1)

	ctx := context.Background()
	for _, s := range []string{"A", "B", "C"} {
		_, err := g.History(ctx, s, time.Time{}, time.Time{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, g.Breaker.State())

	_, err := g.History(ctx, "D", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, errors.Is(err, errs.ErrDataUnavailable))
	assert.Equal(t, 0, f.calls["D"])
}

func TestGuardedBreakerCountsCallsNotAttempts(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	f := newFlaky(boom, map[string]int{"A": 10})
	g := testGuarded(f, 3)

	ctx := context.Background()
	_, err := g.History(ctx, "A", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Equal(t, 3, f.calls["A"])
	assert.Equal(t, gobreaker.StateClosed, g.Breaker.State())
	assert.Equal(t, uint32(1), g.Breaker.Counts().ConsecutiveFailures)

	_, err = g.History(ctx, "B", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), g.Breaker.Counts().ConsecutiveFailures)
}

func TestGuardedThrottlingKeepsBreakerClosed(t *testing.T) {
	t.Parallel()

	throttled := errs.New(errs.ErrRateLimited, "test", "", nil)
	f := newFlaky(throttled, map[string]int{"A": 10, "B": 10, "C": 10, "D": 10})
	g := testGuarded(f, 3)

	ctx := context.Background()
	for _, s := range []string{"A", "B", "C", "D"} {
		_, err := g.History(ctx, s, time.Time{}, time.Time{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrDataUnavailable)
		assert.Equal(t, 3, f.calls[s], s)
	}
	assert.Equal(t, gobreaker.StateClosed, g.Breaker.State())
}

func TestGuardedScoreHistory(t *testing.T) {
	t.Parallel()

	fs := &FileScorer{Entries: map[string]ScoreEntry{
		"KO": {Value: 7, Date: "2024-01-02", History: []ScoreEntry{{Value: 5, Date: "2021-03-01"}}},
	}}
	g := NewGuarded(StaticUniverse{}, Synthetic{}, fs, GuardOptions{Logger: zerolog.Nop()})

	hist, err := g.ScoreHistory(context.Background(), "KO")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 5.0, hist[0].Value)
	assert.Equal(t, 7.0, hist[1].Value)

	g = NewGuarded(StaticUniverse{}, Synthetic{}, Synthetic{}, GuardOptions{Logger: zerolog.Nop()})
	hist, err = g.ScoreHistory(context.Background(), "KO")
	require.NoError(t, err)
	assert.Nil(t, hist)
}

func TestGuardedUniverseAndScores(t *testing.T) {
	t.Parallel()

	syn := Synthetic{Seed: 1, Symbols: []string{"X", "Y"}}
	g := NewGuarded(syn, syn, syn, GuardOptions{RatePerSec: 1000, Burst: 10, Logger: zerolog.Nop()})
	require.NotNil(t, g.Limiter)
	assert.Equal(t, 3, g.Policy.Attempts)

	ctx := context.Background()
	syms, err := g.ListSymbols(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, syms)

	sc, err := g.Score(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "X", sc.Symbol)
}

func TestGuardedCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := testGuarded(newFlaky(nil, nil), 3)
	_, err := g.History(ctx, "AAPL", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}
