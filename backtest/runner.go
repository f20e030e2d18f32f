package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/signal"
)

// RunFrame simulates a frame built by signal.BuildSignals, using its close,
// entry and exit columns.
func RunFrame(frame signal.FactorFrame, opts Options) (Result, error) {
	n := frame.Len()
	if len(frame.Entry) != n || len(frame.Exit) != n {
		return Result{}, errs.Simulation("backtest.frame", "%s: frame has no signals; call signal.BuildSignals first", frame.Symbol)
	}
	dates := make([]time.Time, n)
	for i, b := range frame.Bars {
		dates[i] = b.Date
	}
	r, err := run(frame.Closes(), dates, frame.Entry, frame.Exit, opts)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", frame.Symbol, err)
	}
	r.Symbol = frame.Symbol
	return r, nil
}

// RunnerOptions controls how RunUniverse behaves.
type RunnerOptions struct {
	Options
	Logger *zerolog.Logger // nil uses the global logger
}

// UniverseResult aggregates independent per-symbol runs.
type UniverseResult struct {
	Results []Result         // sorted by symbol
	Skipped map[string]error // symbols whose data could not be simulated

	AvgReturnPct   float64
	AvgSharpe      float64
	WorstDrawdown  float64
	TotalTrades    int
	ProfitableRuns int
}

// RunUniverse replays each frame independently. A frame that fails with a
// data error is logged and skipped; any other error aborts the run.
func RunUniverse(ctx context.Context, frames []signal.FactorFrame, opts RunnerOptions) (UniverseResult, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	out := UniverseResult{Skipped: map[string]error{}}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r, err := RunFrame(f, opts.Options)
		if err != nil {
			if errs.KindOf(err) == errs.ErrSimulationData {
				logger.Warn().Str("symbol", f.Symbol).Err(err).Msg("skipping symbol")
				out.Skipped[f.Symbol] = err
				continue
			}
			return out, err
		}
		logger.Debug().
			Str("symbol", f.Symbol).
			Float64("return_pct", r.TotalReturnPct).
			Float64("max_dd_pct", r.MaxDrawdownPct).
			Float64("sharpe", r.SharpeRatio).
			Msg("backtest done")
		out.Results = append(out.Results, r)
	}

	if len(out.Results) == 0 {
		return out, errs.New(errs.ErrSimulationData, "backtest.universe", "", fmt.Errorf("no symbol could be simulated (%d skipped)", len(out.Skipped)))
	}

	sort.Slice(out.Results, func(i, j int) bool { return out.Results[i].Symbol < out.Results[j].Symbol })
	for _, r := range out.Results {
		out.AvgReturnPct += r.TotalReturnPct
		out.AvgSharpe += r.SharpeRatio
		out.TotalTrades += r.TradeCount
		if r.MaxDrawdownPct < out.WorstDrawdown {
			out.WorstDrawdown = r.MaxDrawdownPct
		}
		if r.TotalReturnPct > 0 {
			out.ProfitableRuns++
		}
	}
	n := float64(len(out.Results))
	out.AvgReturnPct /= n
	out.AvgSharpe /= n
	return out, nil
}
