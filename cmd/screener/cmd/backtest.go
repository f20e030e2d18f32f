package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/backtest"
	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/journal"
	"github.com/rustyeddy/screener/metrics"
	"github.com/rustyeddy/screener/report"
	"github.com/rustyeddy/screener/signal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [universe]",
	Short: "Backtest the quality score plus trend rule",
	Long: `Backtest replays the entry and exit signals of every symbol in a
universe over its daily closes. A symbol enters when its score is at or
above the threshold and it closes above the trend SMA, and exits when it
closes below the SMA.

Each bar is scored with the latest dated score on or before it when the
score source keeps a history (the history list of a scores file). Bars
before the first dated score never enter. Without a history the current
score is applied to every bar, which looks ahead: a symbol that scores
well today is treated as having scored well all along.

Examples:
  screener backtest SP500
  screener backtest --symbols AAPL,MSFT --threshold 8 --xlsx equity.xlsx
  screener backtest WATCH --journal --start 2020-01-01
  screener backtest SP500 --csv-dir runs/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

var (
	btSymbols   string
	btThreshold float64
	btStart     string
	btEnd       string
	btJournal   bool
	btCSVDir    string
	btXLSX      string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btSymbols, "symbols", "s", "", "comma separated symbols to backtest instead of a universe")
	backtestCmd.Flags().Float64VarP(&btThreshold, "threshold", "t", -1, "entry score threshold (default signal.score_threshold)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "first bar date YYYY-MM-DD (default backtest.start)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last bar date YYYY-MM-DD (default backtest.end)")
	backtestCmd.Flags().BoolVarP(&btJournal, "journal", "j", false, "record every run in the SQLite journal")
	backtestCmd.Flags().StringVar(&btCSVDir, "csv-dir", "", "write runs.csv, trades.csv and equity.csv to this directory")
	backtestCmd.Flags().StringVar(&btXLSX, "xlsx", "", "write equity curves and trades to this xlsx file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	universe := cfg.Screen.Universe
	if len(args) == 1 {
		universe = args[0]
	}
	threshold := cfg.Signal.ScoreThreshold
	if btThreshold >= 0 {
		threshold = btThreshold
	}

	bc := cfg.Backtest
	if btStart != "" {
		bc.Start = btStart
	}
	if btEnd != "" {
		bc.End = btEnd
	}
	start, end, err := bc.Range()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	p, err := newProviders(cfg, universe, splitSymbols(btSymbols))
	if err != nil {
		return err
	}
	symbols, err := p.Universe().ListSymbols(ctx, universe)
	if err != nil {
		return fmt.Errorf("list universe: %w", err)
	}

	params := cfg.SignalParams()
	frames := make([]signal.FactorFrame, 0, len(symbols))
	for _, sym := range symbols {
		f, err := buildFrame(ctx, p, sym, start, end, threshold, params)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Str("symbol", sym).Err(err).Msg("skipping symbol")
			metrics.RecordBacktest(sym, 0, err)
			continue
		}
		frames = append(frames, f)
	}

	opts := cfg.BacktestOptions()
	res, err := backtest.RunUniverse(ctx, frames, backtest.RunnerOptions{Options: opts})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	for _, r := range res.Results {
		metrics.RecordBacktest(r.Symbol, r.TotalReturnPct, nil)
	}
	for sym, err := range res.Skipped {
		metrics.RecordBacktest(sym, 0, err)
	}

	report.Backtests(os.Stdout, res.Results)
	report.Universe(os.Stdout, res)

	if btJournal || btCSVDir != "" {
		meta := journal.RunMeta{Universe: universe, Threshold: threshold, Params: params, Options: opts, Created: time.Now()}
		if err := journalRuns(ctx, res.Results, meta, btJournal, btCSVDir); err != nil {
			return err
		}
	}
	if btXLSX != "" {
		if err := report.WriteEquityXLSX(btXLSX, res.Results); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		fmt.Printf("✓ Wrote %s\n", btXLSX)
	}
	return nil
}

// buildFrame scores each bar from the symbol's dated score history, or
// applies its current score to every bar when there is none, and computes the
// signal columns.
func buildFrame(ctx context.Context, p providers, sym string, start, end time.Time, threshold float64, params signal.Params) (signal.FactorFrame, error) {
	series, err := p.Prices().History(ctx, sym, start, end)
	if err != nil {
		return signal.FactorFrame{}, err
	}
	if series.Len() == 0 {
		return signal.FactorFrame{}, errs.Unavailable("backtest.history", sym, errors.New("no bars in range"))
	}

	hist, err := p.ScoreHistory().ScoreHistory(ctx, sym)
	if err != nil {
		return signal.FactorFrame{}, err
	}
	if len(hist) > 0 {
		return signal.BuildSignalsWith(signal.NewFrameWithScores(series, hist), threshold, params), nil
	}

	score, err := p.Scorer().Score(ctx, sym)
	if err != nil {
		return signal.FactorFrame{}, err
	}
	log.Debug().Str("symbol", sym).Float64("score", score.Value).Msg("no score history, current score applied to all bars")
	return signal.BuildSignalsWith(signal.NewFrame(series, score.Value), threshold, params), nil
}

// journalRuns saves every result to the SQLite journal when toDB is set and
// to CSV files in csvDir when it is not empty. Both get the same run IDs.
func journalRuns(ctx context.Context, results []backtest.Result, meta journal.RunMeta, toDB bool, csvDir string) error {
	var (
		sinks []journal.Journal
		dests []string
	)
	if toDB {
		db, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		sinks = append(sinks, db)
		dests = append(dests, cfg.Journal.DBPath)
	}
	if csvDir != "" {
		cj, err := journal.NewCSV(csvDir)
		if err != nil {
			journal.Multi(sinks...).Close()
			return fmt.Errorf("open csv journal: %w", err)
		}
		sinks = append(sinks, cj)
		dests = append(dests, csvDir)
	}
	j := journal.Multi(sinks...)

	for _, r := range results {
		run, err := journal.Save(ctx, j, r, meta)
		if err != nil {
			j.Close()
			return fmt.Errorf("journal %s: %w", r.Symbol, err)
		}
		log.Info().Str("run_id", run.RunID).Str("symbol", r.Symbol).Msg("journaled backtest")
	}
	if err := j.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	fmt.Printf("✓ Journaled %d runs to %s\n", len(results), strings.Join(dests, " and "))
	return nil
}
