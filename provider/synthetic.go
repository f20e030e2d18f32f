package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rustyeddy/screener/market"
)

// Synthetic generates deterministic prices and scores from a seed. It exists
// for demos and tests and is only used when the caller asks for it
// explicitly; it is never a fallback for missing credentials.
type Synthetic struct {
	Seed    int64
	Symbols []string  // returned for every universe name
	Bars    int       // history length, 0 means 400
	End     time.Time // date of the last bar, zero means 2024-12-31
	Drift   float64   // mean daily log return, 0 means 0.0004
	Vol     float64   // daily log return stdev, 0 means 0.015
}

func (s Synthetic) rng(symbol, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	h.Write([]byte(salt))
	return rand.New(rand.NewSource(s.Seed ^ int64(h.Sum64())))
}

func (s Synthetic) ListSymbols(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return normalize(s.Symbols), nil
}

// History returns a geometric random walk of weekday bars ending at End.
func (s Synthetic) History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}
	n := s.Bars
	if n <= 0 {
		n = 400
	}
	last := s.End
	if last.IsZero() {
		last = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	drift, vol := s.Drift, s.Vol
	if drift == 0 {
		drift = 0.0004
	}
	if vol == 0 {
		vol = 0.015
	}

	dates := make([]time.Time, n)
	d := market.Day(last)
	for i := n - 1; i >= 0; i-- {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
		dates[i] = d
		d = d.AddDate(0, 0, -1)
	}

	r := s.rng(symbol, "prices")
	sym := strings.ToUpper(symbol)
	px := 20 + r.Float64()*180
	out := market.Series{Symbol: sym, Bars: make([]market.PriceBar, 0, n)}
	for _, dt := range dates {
		open := px
		px *= math.Exp(drift + vol*r.NormFloat64())
		hi := math.Max(open, px) * (1 + vol*r.Float64()/2)
		lo := math.Min(open, px) * (1 - vol*r.Float64()/2)
		out.Bars = append(out.Bars, market.PriceBar{
			Symbol: sym,
			Date:   dt,
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  px,
			Volume: math.Round(1e5 + r.Float64()*1e6),
		})
	}
	return out.Between(start, end), nil
}

// Score flips each of the nine checks with a per-symbol bias.
func (s Synthetic) Score(ctx context.Context, symbol string) (market.Score, error) {
	if err := ctx.Err(); err != nil {
		return market.Score{}, err
	}
	r := s.rng(symbol, "score")
	bias := 0.3 + 0.6*r.Float64()
	checks := map[string]bool{}
	for _, group := range [][]string{ProfitabilityChecks, LeverageChecks, EfficiencyChecks} {
		for _, k := range group {
			checks[k] = r.Float64() < bias
		}
	}
	v, detail := FScore(checks)
	detail["synthetic"] = true

	end := s.End
	if end.IsZero() {
		end = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return market.Score{Symbol: strings.ToUpper(symbol), Date: market.Day(end), Value: v, Detail: detail}, nil
}
