package cmd

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/screener/report"
	"github.com/rustyeddy/screener/risk"
)

var riskCmd = &cobra.Command{
	Use:   "risk <book.yaml>",
	Short: "Report and adjust the risk of an open book",
	Long: `Load open positions from a YAML book, ratchet trailing stops for the
given prices, print the portfolio risk and scale every position down when
total risk is above the portfolio cap.

Book format:
  positions:
    AAPL: {entry_price: 190, shares: 50, stop_loss: 183}
    MSFT: {entry_price: 410, shares: 20, stop_loss: 396}

Examples:
  screener risk book.yaml
  screener risk book.yaml --price AAPL=205 --adjust
  screener risk book.yaml --adjust --cap 0.02 --out adjusted.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRisk,
}

var (
	riskPrices   map[string]string
	riskTrailMul float64
	riskAdjust   bool
	riskCap      float64
	riskOut      string
)

func init() {
	rootCmd.AddCommand(riskCmd)

	riskCmd.Flags().StringToStringVar(&riskPrices, "price", nil, "current price per ticker for trailing stops, e.g. AAPL=205")
	riskCmd.Flags().Float64Var(&riskTrailMul, "trail", 2, "trailing stop ATR multiple")
	riskCmd.Flags().BoolVar(&riskAdjust, "adjust", false, "scale positions down to the portfolio risk cap")
	riskCmd.Flags().Float64Var(&riskCap, "cap", 0, "portfolio risk cap as a fraction (default risk.max_portfolio_risk_pct)")
	riskCmd.Flags().StringVarP(&riskOut, "out", "o", "", "write the resulting book to this YAML file")
}

type bookFile struct {
	Positions map[string]risk.Position `yaml:"positions"`
}

func loadBook(path string, m *risk.Manager) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read book: %w", err)
	}
	var b bookFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parse book: %w", err)
	}
	for t, p := range b.Positions {
		t = strings.ToUpper(t)
		p.Ticker = t
		if p.DollarAmount == 0 {
			p.DollarAmount = float64(p.Shares) * p.EntryPrice
		}
		if p.RiskAmount == 0 {
			p.RiskAmount = float64(p.Shares) * math.Max(0, p.EntryPrice-p.StopLoss)
		}
		if p.RiskPct == 0 && m.AccountSize > 0 {
			p.RiskPct = p.RiskAmount / m.AccountSize
		}
		m.AddPosition(t, p)
	}
	return nil
}

func runRisk(cmd *cobra.Command, args []string) error {
	mgr := risk.NewManager(cfg.Account.Size, cfg.Risk.MaxRiskPct, cfg.Risk.MaxPositionPct)
	if err := loadBook(args[0], mgr); err != nil {
		return err
	}

	for t, s := range riskPrices {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("price for %s: %w", t, err)
		}
		stop, err := mgr.TrailingStop(strings.ToUpper(t), price, riskTrailMul)
		if err != nil {
			return fmt.Errorf("trailing stop: %w", err)
		}
		fmt.Printf("  %s stop at %.2f\n", strings.ToUpper(t), stop)
	}

	report.Positions(os.Stdout, mgr.Positions(), mgr.PortfolioRisk())

	limit := cfg.Risk.MaxPortfolioRiskPct
	if riskCap > 0 {
		limit = riskCap
	}
	if pr := mgr.PortfolioRisk(); pr.TotalRiskPct > limit {
		if !riskAdjust {
			fmt.Printf("✗ Portfolio risk %.2f%% is above the %.2f%% cap (use --adjust)\n", pr.TotalRiskPct*100, limit*100)
		} else {
			mgr.AdjustPositionSizes(limit)
			report.Positions(os.Stdout, mgr.Positions(), mgr.PortfolioRisk())
		}
	}

	if riskOut != "" {
		data, err := yaml.Marshal(bookFile{Positions: mgr.Positions()})
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		if err := os.WriteFile(riskOut, data, 0644); err != nil {
			return fmt.Errorf("write book: %w", err)
		}
		fmt.Printf("✓ Wrote %s\n", riskOut)
	}
	return nil
}
