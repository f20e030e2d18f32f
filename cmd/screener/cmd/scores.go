package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/report"
	"github.com/rustyeddy/screener/scores"
)

var scoresCmd = &cobra.Command{
	Use:   "scores [universe]",
	Short: "Build or load the cached score table for a universe",
	Long: `Return the score table for a universe. A table younger than the cache
freshness window is served from the store; otherwise every symbol is scored
again in batches and the table is written back.

Examples:
  screener scores SP500
  screener scores WATCH --min-score 7 --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScores,
}

var (
	scoresSymbols  string
	scoresMinScore float64
	scoresLimit    int
)

func init() {
	rootCmd.AddCommand(scoresCmd)

	scoresCmd.Flags().StringVarP(&scoresSymbols, "symbols", "s", "", "comma separated symbols to serve as the universe")
	scoresCmd.Flags().Float64Var(&scoresMinScore, "min-score", 0, "hide rows below this score")
	scoresCmd.Flags().IntVarP(&scoresLimit, "limit", "n", 0, "show at most this many rows")
}

func runScores(cmd *cobra.Command, args []string) error {
	universe := cfg.Screen.Universe
	if len(args) == 1 {
		universe = args[0]
	}

	ctx, cancel := commandContext()
	defer cancel()

	p, err := newProviders(cfg, universe, splitSymbols(scoresSymbols))
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open score store: %w", err)
	}
	defer store.Close()

	cache, err := newCache(cfg, store, p)
	if err != nil {
		return err
	}
	table, err := cache.GetScores(ctx, universe)
	if err != nil {
		return fmt.Errorf("get scores: %w", err)
	}

	rows := table.Select(scores.Filter{MinScore: scoresMinScore, Limit: scoresLimit})
	title := fmt.Sprintf("Scores %s (%s)", table.Universe, table.ComputedAt.Format("2006-01-02 15:04"))
	report.Scores(os.Stdout, title, rows)
	return nil
}
