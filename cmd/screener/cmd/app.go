package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/provider"
	"github.com/rustyeddy/screener/scores"
)

var defaultSymbols = []string{"AAPL", "MSFT", "GOOG", "AMZN", "JNJ", "KO", "PG", "XOM", "V", "WMT"}

// providers is the guarded data layer shared by every command.
type providers struct {
	guarded *provider.Guarded
}

func (p providers) Universe() provider.Universe { return p.guarded }
func (p providers) Prices() provider.PriceHistory { return p.guarded }
func (p providers) Scorer() provider.Scorer { return p.guarded }
func (p providers) ScoreHistory() provider.ScoreHistory { return p.guarded }

// newProviders builds the configured data sources behind a rate limiter,
// circuit breaker and retry policy. Synthetic data is used only when the
// config asks for it. Explicit symbols, or the price files on disk when no
// universe file is set, are served under the universe name.
func newProviders(c *config.Config, universe string, symbols []string) (providers, error) {
	var (
		u provider.Universe
		p provider.PriceHistory
		s provider.Scorer
	)

	if c.Provider.Synthetic {
		if len(symbols) == 0 {
			symbols = defaultSymbols
		}
		syn := provider.Synthetic{Seed: c.Provider.Seed, Symbols: symbols}
		u, p, s = syn, syn, syn
	} else {
		csv := provider.CSVHistory{Dir: c.Provider.PricesDir}
		p = csv

		switch {
		case len(symbols) > 0:
			u = provider.StaticUniverse{universe: symbols}
		case c.Provider.UniverseFile != "":
			su, err := provider.LoadUniverseFile(c.Provider.UniverseFile)
			if err != nil {
				return providers{}, err
			}
			u = su
		default:
			syms, err := csv.Symbols()
			if err != nil {
				return providers{}, fmt.Errorf("list price files: %w", err)
			}
			u = provider.StaticUniverse{universe: syms}
		}

		if c.Provider.ScoresFile == "" {
			return providers{}, fmt.Errorf("provider.scores_file is required without synthetic data")
		}
		fs, err := provider.LoadScoreFile(c.Provider.ScoresFile)
		if err != nil {
			return providers{}, err
		}
		s = fs
	}

	policy, err := c.Provider.Retry.Policy()
	if err != nil {
		return providers{}, err
	}
	g := provider.NewGuarded(u, p, s, provider.GuardOptions{
		Policy:     policy,
		RatePerSec: c.Provider.RatePerSec,
		Burst:      1,
		Logger:     log.Logger,
	})
	return providers{guarded: g}, nil
}

// openStore opens the configured score store.
func openStore(c *config.Config) (scores.Store, error) {
	switch c.Cache.Backend {
	case "memory":
		return scores.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: c.Cache.RedisAddr})
		return scores.NewRedisStore(client, scores.RedisOptions{}), nil
	case "sqlite", "":
		return scores.NewSQLiteStore(c.Cache.Path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
}

// newCache wires the score cache. Skips are already warned by the cache, so
// diagnostics only go to the debug log.
func newCache(c *config.Config, store scores.Store, p providers) (*scores.Cache, error) {
	fresh, err := c.Cache.FreshnessDuration()
	if err != nil {
		return nil, err
	}
	return scores.New(store, p.Universe(), p.Prices(), p.Scorer(), scores.Options{
		Freshness: fresh,
		BatchSize: c.Cache.BatchSize,
		ATRPeriod: c.Signal.ATRPeriod,
		Diagnostic: func(d scores.Diagnostic) {
			log.Debug().
				Str("universe", d.Universe).
				Str("symbol", d.Symbol).
				AnErr("kind", d.Kind).
				Err(d.Err).
				Msg("score diagnostic")
		},
	}), nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
