package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/broker"
	"github.com/rustyeddy/screener/report"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/screen"
)

var screenCmd = &cobra.Command{
	Use:   "screen [universe]",
	Short: "Run the nightly screen and size the candidates",
	Long: `Screen loads the score table, keeps symbols at or above the score
threshold inside the price band, drops those closing below the trend SMA,
takes the top N by score and sizes each one. With --submit every sized
position that passes the risk policy is sent as a bracket order to the
paper broker.

Examples:
  screener screen SP500
  screener screen SP500 --top 5 --submit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreen,
}

var (
	screenSymbols string
	screenTop     int
	screenSubmit  bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVarP(&screenSymbols, "symbols", "s", "", "comma separated symbols to serve as the universe")
	screenCmd.Flags().IntVarP(&screenTop, "top", "n", -1, "keep at most this many candidates (default screen.top_n)")
	screenCmd.Flags().BoolVar(&screenSubmit, "submit", false, "send bracket orders to the paper broker")
}

func runScreen(cmd *cobra.Command, args []string) error {
	universe := cfg.Screen.Universe
	if len(args) == 1 {
		universe = args[0]
	}
	top := cfg.Screen.TopN
	if screenTop >= 0 {
		top = screenTop
	}

	ctx, cancel := commandContext()
	defer cancel()

	p, err := newProviders(cfg, universe, splitSymbols(screenSymbols))
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

	mgr := risk.NewManager(cfg.Account.Size, cfg.Risk.MaxRiskPct, cfg.Risk.MaxPositionPct)
	sizer, err := risk.NewSizer(cfg.Risk.Sizer, mgr, cfg.Risk.RiskMultiple)
	if err != nil {
		return err
	}

	s := &screen.Screener{
		Scores:  cache,
		Prices:  p.Prices(),
		Sizer:   sizer,
		Manager: mgr,
	}
	var paper *broker.Paper
	if screenSubmit {
		paper = broker.NewPaper(log.Logger)
		s.Broker = paper
	}

	rep, err := s.Run(ctx, screen.Options{
		Universe:   universe,
		Threshold:  cfg.Signal.ScoreThreshold,
		MinPrice:   cfg.Screen.MinPrice,
		MaxPrice:   cfg.Screen.MaxPrice,
		TopN:       top,
		Params:     cfg.SignalParams(),
		RiskReward: cfg.Risk.RiskReward,
		Policy:     cfg.RiskPolicy(),
	})
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	report.Screen(os.Stdout, rep)
	if paper != nil {
		fmt.Printf("✓ Submitted %d bracket orders to the paper broker\n", rep.Submitted)
		for sym, qty := range paper.Open() {
			log.Debug().Str("symbol", sym).Int("qty", qty).Msg("open paper order")
		}
	}
	return nil
}
