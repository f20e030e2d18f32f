package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/metrics"
	"github.com/rustyeddy/screener/retry"
)

// Guarded wraps the providers so every attempt is paced by a rate limiter
// and retried under the policy. Each logical call, with all its retries,
// passes the circuit breaker once.
//
// Throttled and transient failures are retried. Once retries run out the
// call fails with errs.ErrDataUnavailable. Failures that already carry
// ErrDataUnavailable are not retried.
type Guarded struct {
	Universe Universe
	Prices   PriceHistory
	Scores   Scorer

	Policy  retry.Policy
	Limiter *rate.Limiter             // nil disables pacing
	Breaker *gobreaker.CircuitBreaker // nil disables the breaker
	Logger  zerolog.Logger
}

// GuardOptions configures NewGuarded.
type GuardOptions struct {
	Policy     retry.Policy
	RatePerSec float64 // 0 disables pacing
	Burst      int
	Logger     zerolog.Logger
}

// NewGuarded wraps the three providers with shared pacing and breaker.
func NewGuarded(u Universe, p PriceHistory, s Scorer, o GuardOptions) *Guarded {
	g := &Guarded{
		Universe: u,
		Prices:   p,
		Scores:   s,
		Policy:   o.Policy,
		Breaker:  NewBreaker("provider"),
		Logger:   o.Logger,
	}
	if o.RatePerSec > 0 {
		burst := o.Burst
		if burst < 1 {
			burst = 1
		}
		g.Limiter = rate.NewLimiter(rate.Limit(o.RatePerSec), burst)
	}
	if g.Policy.Attempts == 0 {
		g.Policy = retry.Default()
	}
	g.Policy.Logger = o.Logger
	return g
}

// NewBreaker trips after three consecutive failed calls, or when more than
// half of at least 20 calls fail, and stays open for a minute. The breaker
// sees one result per logical call, after retries, so a single symbol counts
// at most once. Throttling, symbol-level data errors and cancellation do not
// count against provider health.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.5
	}
	st.IsSuccessful = healthy
	return gobreaker.NewCircuitBreaker(st)
}

func healthy(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, errs.ErrDataUnavailable), errors.Is(err, errs.ErrRateLimited), errors.Is(err, errs.ErrInvalidOrder):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

func (g *Guarded) call(ctx context.Context, op, symbol string, fn func(ctx context.Context) (any, error)) (any, error) {
	policy := g.Policy
	policy.OnRetry = func(op string, attempt int, err error) {
		metrics.ProviderRetries.WithLabelValues(op).Inc()
		if g.Policy.OnRetry != nil {
			g.Policy.OnRetry(op, attempt, err)
		}
	}

	attempt := func() (interface{}, error) {
		var out any
		err := policy.Do(ctx, op, func(ctx context.Context) error {
			if g.Limiter != nil {
				if err := g.Limiter.Wait(ctx); err != nil {
					return retry.Permanent(err)
				}
			}
			v, err := fn(ctx)
			switch {
			case err == nil:
				out = v
				return nil
			case errors.Is(err, errs.ErrDataUnavailable), errors.Is(err, errs.ErrInvalidOrder):
				return retry.Permanent(err)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return retry.Permanent(err)
			}
			return err
		})
		return out, err
	}

	start := time.Now()
	var out any
	var err error
	if g.Breaker != nil {
		out, err = g.Breaker.Execute(attempt)
	} else {
		out, err = attempt()
	}
	metrics.ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.ProviderCalls.WithLabelValues(op, "canceled").Inc()
		return nil, ctxErr
	}

	outcome := "error"
	if errors.Is(err, errs.ErrRateLimited) {
		outcome = "rate_limited"
	}
	metrics.ProviderCalls.WithLabelValues(op, outcome).Inc()
	g.Logger.Warn().Str("op", op).Str("symbol", symbol).Err(err).Msg("provider call failed")

	if errors.Is(err, errs.ErrDataUnavailable) {
		return nil, err
	}
	return nil, errs.Unavailable(op, symbol, err)
}

func (g *Guarded) ListSymbols(ctx context.Context, name string) ([]string, error) {
	v, err := g.call(ctx, "universe.list", "", func(ctx context.Context) (any, error) {
		return g.Universe.ListSymbols(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (g *Guarded) History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	v, err := g.call(ctx, "prices.history", symbol, func(ctx context.Context) (any, error) {
		return g.Prices.History(ctx, symbol, start, end)
	})
	if err != nil {
		return market.Series{}, err
	}
	return v.(market.Series), nil
}

func (g *Guarded) Score(ctx context.Context, symbol string) (market.Score, error) {
	v, err := g.call(ctx, "scores.score", symbol, func(ctx context.Context) (any, error) {
		return g.Scores.Score(ctx, symbol)
	})
	if err != nil {
		return market.Score{}, err
	}
	return v.(market.Score), nil
}

// ScoreHistory passes through to the scorer when it keeps dated scores and
// returns nothing otherwise.
func (g *Guarded) ScoreHistory(ctx context.Context, symbol string) ([]market.Score, error) {
	sh, ok := g.Scores.(ScoreHistory)
	if !ok {
		return nil, nil
	}
	v, err := g.call(ctx, "scores.history", symbol, func(ctx context.Context) (any, error) {
		return sh.ScoreHistory(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.([]market.Score), nil
}
