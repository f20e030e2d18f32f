package scores

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/metrics"
	"github.com/rustyeddy/screener/provider"
)

const (
	DefaultFreshness = 24 * time.Hour
	DefaultBatchSize = 100
	DefaultATRPeriod = 14
)

// Diagnostic reports a non-fatal problem: a skipped symbol (Kind
// ErrDataUnavailable) or a failed store read or write (Kind
// ErrCacheUnavailable).
type Diagnostic struct {
	Universe string
	Symbol   string
	Kind     error
	Err      error
}

// DiagnosticFunc receives every Diagnostic raised while building a table.
type DiagnosticFunc func(Diagnostic)

// Options configures a Cache.
type Options struct {
	Freshness  time.Duration // default 24h
	BatchSize  int           // default 100
	ATRPeriod  int           // default 14
	Lookback   time.Duration // price history window, 0 fetches everything
	Diagnostic DiagnosticFunc
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// Cache serves score tables from a Store and rebuilds them from the
// providers when missing or stale.
type Cache struct {
	store    Store
	universe provider.Universe
	prices   provider.PriceHistory
	scorer   provider.Scorer
	opts     Options
	log      zerolog.Logger
}

func New(store Store, u provider.Universe, p provider.PriceHistory, s provider.Scorer, o Options) *Cache {
	if o.Freshness <= 0 {
		o.Freshness = DefaultFreshness
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ATRPeriod <= 0 {
		o.ATRPeriod = DefaultATRPeriod
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	c := &Cache{store: store, universe: u, prices: p, scorer: s, opts: o, log: log.Logger}
	if o.Logger != nil {
		c.log = *o.Logger
	}
	return c
}

// GetScores returns the score table for universe. A stored table younger
// than the freshness window is returned unchanged; otherwise the table is
// rebuilt symbol by symbol and written back. Symbols that cannot be scored
// are dropped. An empty universe or an empty result is ErrDataUnavailable.
func (c *Cache) GetScores(ctx context.Context, universe string) (ScoreTable, error) {
	const op = "scores.get"
	now := c.opts.Now()

	if c.store != nil {
		e, ok, err := c.store.LoadTable(ctx, universe)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			c.diagnose(Diagnostic{Universe: universe, Kind: errs.ErrCacheUnavailable, Err: errs.Cache("scores.store", err)})
		case !ok:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		case now.Sub(e.WrittenAt) < c.opts.Freshness:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			c.log.Debug().Str("universe", universe).Time("written_at", e.WrittenAt).Msg("score table cache hit")
			return e.Table, nil
		default:
			metrics.CacheLookups.WithLabelValues("stale").Inc()
		}
	}

	symbols, err := c.universe.ListSymbols(ctx, universe)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ScoreTable{}, ctxErr
		}
		return ScoreTable{}, errs.Unavailable(op, "", fmt.Errorf("universe %q: %w", universe, err))
	}
	if len(symbols) == 0 {
		return ScoreTable{}, errs.Unavailable(op, "", fmt.Errorf("universe %q has no symbols", universe))
	}

	table := ScoreTable{Universe: universe, ComputedAt: now.UTC(), Rows: map[string]ScoreRow{}}
	batches := provider.Batches(symbols, c.opts.BatchSize)
	for i, batch := range batches {
		c.log.Info().
			Str("universe", universe).
			Int("batch", i+1).
			Int("batches", len(batches)).
			Int("symbols", len(batch)).
			Msg("scoring batch")
		for _, sym := range batch {
			if err := ctx.Err(); err != nil {
				return ScoreTable{}, err
			}
			row, err := c.scoreSymbol(ctx, sym, now)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ScoreTable{}, ctxErr
				}
				c.skip(universe, sym, err)
				continue
			}
			table.Rows[sym] = row
		}
	}

	if table.Len() == 0 {
		return ScoreTable{}, errs.Unavailable(op, "", fmt.Errorf("no symbol of universe %q could be scored", universe))
	}

	if c.store != nil {
		if err := c.store.SaveTable(ctx, table); err != nil {
			metrics.CacheWriteFailures.Inc()
			c.diagnose(Diagnostic{Universe: universe, Kind: errs.ErrCacheUnavailable, Err: errs.Cache("scores.store", err)})
		}
	}
	return table, nil
}

func (c *Cache) scoreSymbol(ctx context.Context, sym string, now time.Time) (ScoreRow, error) {
	const op = "scores.symbol"

	sc, err := c.score(ctx, sym, now)
	if err != nil {
		return ScoreRow{}, reason("score", errs.Unavailable(op, sym, err))
	}

	var start time.Time
	if c.opts.Lookback > 0 {
		start = now.Add(-c.opts.Lookback)
	}
	series, err := c.prices.History(ctx, sym, start, time.Time{})
	if err != nil {
		return ScoreRow{}, reason("history", errs.Unavailable(op, sym, err))
	}
	last, ok := series.Last()
	if !ok {
		return ScoreRow{}, reason("history", errs.Unavailable(op, sym, errors.New("empty price history")))
	}
	atr, err := indicators.ATRFunc(series.Bars, c.opts.ATRPeriod)
	if err != nil {
		return ScoreRow{}, reason("atr", errs.Unavailable(op, sym, err))
	}

	row := ScoreRow{Symbol: sym, Score: sc.Value, Close: last.Close, ATR: atr, Detail: sc.Detail}
	for name, v := range map[string]float64{"score": row.Score, "close": row.Close, "atr": row.ATR} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ScoreRow{}, reason("missing_field", errs.Unavailable(op, sym, fmt.Errorf("%s is not a number", name)))
		}
	}
	return row, nil
}

// score returns today's score for sym from the per-symbol store, asking the
// scorer only on a miss.
func (c *Cache) score(ctx context.Context, sym string, now time.Time) (market.Score, error) {
	if c.store != nil {
		sc, ok, err := c.store.LoadScore(ctx, sym, now)
		if err != nil {
			c.diagnose(Diagnostic{Symbol: sym, Kind: errs.ErrCacheUnavailable, Err: errs.Cache("scores.store", err)})
		} else if ok {
			return sc, nil
		}
	}

	sc, err := c.scorer.Score(ctx, sym)
	if err != nil {
		return market.Score{}, err
	}
	if c.store != nil {
		if err := c.store.SaveScore(ctx, now, sc); err != nil {
			metrics.CacheWriteFailures.Inc()
			c.diagnose(Diagnostic{Symbol: sym, Kind: errs.ErrCacheUnavailable, Err: errs.Cache("scores.store", err)})
		}
	}
	return sc, nil
}

type skipReason struct {
	reason string
	err    error
}

func (s skipReason) Error() string { return s.err.Error() }
func (s skipReason) Unwrap() error { return s.err }

func reason(r string, err error) error { return skipReason{reason: r, err: err} }

func (c *Cache) skip(universe, sym string, err error) {
	r := "error"
	var sr skipReason
	if errors.As(err, &sr) {
		r = sr.reason
	}
	metrics.SymbolsSkipped.WithLabelValues(r).Inc()
	c.log.Warn().Str("universe", universe).Str("symbol", sym).Str("reason", r).Err(err).Msg("symbol skipped")
	c.diagnose(Diagnostic{Universe: universe, Symbol: sym, Kind: errs.ErrDataUnavailable, Err: err})
}

func (c *Cache) diagnose(d Diagnostic) {
	if d.Kind == errs.ErrCacheUnavailable {
		c.log.Warn().Str("universe", d.Universe).Str("symbol", d.Symbol).Err(d.Err).Msg("score cache unavailable")
	}
	if c.opts.Diagnostic != nil {
		c.opts.Diagnostic(d)
	}
}
