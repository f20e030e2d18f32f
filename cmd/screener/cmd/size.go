package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/report"
	"github.com/rustyeddy/screener/risk"
)

var sizeCmd = &cobra.Command{
	Use:   "size <ticker>",
	Short: "Size one long position from price and ATR",
	Long: `Size a single position with the configured account and risk limits.

With --atr the stop is placed a multiple of ATR below price and the chosen
sizer (capped or dollar) decides the share count. With --stop the share
count is the risk budget divided by the distance to that stop.

Examples:
  screener size AAPL --price 190 --atr 3.5
  screener size AAPL --price 190 --atr 3.5 --sizer dollar
  screener size AAPL --price 100 --stop 95`,
	Args: cobra.ExactArgs(1),
	RunE: runSize,
}

var (
	sizePrice float64
	sizeATR   float64
	sizeStop  float64
	sizeSizer string
	sizeRR    float64
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().Float64VarP(&sizePrice, "price", "p", 0, "entry price (required)")
	sizeCmd.Flags().Float64VarP(&sizeATR, "atr", "a", 0, "average true range at entry")
	sizeCmd.Flags().Float64Var(&sizeStop, "stop", 0, "explicit stop price instead of an ATR stop")
	sizeCmd.Flags().StringVar(&sizeSizer, "sizer", "", "capped or dollar (default risk.sizer)")
	sizeCmd.Flags().Float64Var(&sizeRR, "rr", 0, "take profit as a multiple of stop distance (default risk.risk_reward)")
	sizeCmd.MarkFlagRequired("price")
}

func runSize(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(args[0])
	rr := cfg.Risk.RiskReward
	if sizeRR > 0 {
		rr = sizeRR
	}

	if sizeStop > 0 {
		r := risk.Calculate(risk.Inputs{
			Equity:      cfg.Account.Size,
			RiskPct:     cfg.Risk.MaxRiskPct,
			EntryPrice:  sizePrice,
			StopPrice:   sizeStop,
			PositionCap: cfg.Risk.MaxPositionPct,
		})
		p := risk.Position{
			Ticker:       ticker,
			EntryPrice:   sizePrice,
			Shares:       r.Shares,
			StopLoss:     sizeStop,
			TakeProfit:   risk.TakeProfit(sizePrice, sizeStop, rr),
			DollarAmount: r.DollarAmount,
			RiskAmount:   r.RiskAmount,
			RiskPct:      risk.RiskPct(r.RiskAmount, cfg.Account.Size),
		}
		printSized(p, r.Capped)
		return nil
	}

	name := cfg.Risk.Sizer
	if sizeSizer != "" {
		name = sizeSizer
	}
	mgr := risk.NewManager(cfg.Account.Size, cfg.Risk.MaxRiskPct, cfg.Risk.MaxPositionPct)
	sizer, err := risk.NewSizer(name, mgr, cfg.Risk.RiskMultiple)
	if err != nil {
		return err
	}
	p, err := sizer.Size(ticker, sizePrice, sizeATR)
	if err != nil {
		return fmt.Errorf("size %s: %w", ticker, err)
	}
	if p.Tradable() {
		p.TakeProfit = risk.TakeProfit(p.EntryPrice, p.StopLoss, rr)
	}
	printSized(p, false)
	return nil
}

func printSized(p risk.Position, capped bool) {
	book := map[string]risk.Position{p.Ticker: p}
	report.Positions(os.Stdout, book, risk.PortfolioRisk{
		TotalValue:      p.DollarAmount,
		TotalRiskAmount: p.RiskAmount,
		TotalRiskPct:    p.RiskPct,
		PositionCount:   1,
	})
	if !p.Tradable() {
		fmt.Println("✗ Not tradable: zero shares or stop at or above entry")
		return
	}
	if capped {
		fmt.Println("  Position cap reduced the share count")
	}
	fmt.Printf("  Reward:risk %.2f\n", risk.RR(p.EntryPrice, p.StopLoss, p.TakeProfit))
}
