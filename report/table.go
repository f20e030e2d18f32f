// Package report renders backtest, score, screen and risk results as
// console tables and exports equity curves to xlsx.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rustyeddy/screener/backtest"
	"github.com/rustyeddy/screener/journal"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/scores"
	"github.com/rustyeddy/screener/screen"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// rightFrom right-aligns columns first..last (1-based).
func rightFrom(first, last int) []table.ColumnConfig {
	var cc []table.ColumnConfig
	for n := first; n <= last; n++ {
		cc = append(cc, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cc
}

func money(x float64) string { return fmt.Sprintf("$%.2f", x) }
func pct(x float64) string { return fmt.Sprintf("%.2f%%", x) }

// Backtests prints one row per symbol run.
func Backtests(w io.Writer, results []backtest.Result) {
	t := newTable(w, "BACKTEST RESULTS")
	t.AppendHeader(table.Row{"Symbol", "Return", "Max DD", "Sharpe", "Trades", "Win Rate", "Exposure", "Fees", "Final Equity"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Symbol,
			pct(r.TotalReturnPct),
			pct(r.MaxDrawdownPct),
			fmt.Sprintf("%.2f", r.SharpeRatio),
			r.TradeCount,
			pct(r.WinRate),
			pct(r.ExposurePct),
			money(r.TotalFees),
			money(r.FinalEquity),
		})
	}
	t.SetColumnConfigs(rightFrom(2, 9))
	t.Render()
}

// Universe prints the aggregate of a universe run followed by any skipped
// symbols.
func Universe(w io.Writer, u backtest.UniverseResult) {
	Backtests(w, u.Results)

	t := newTable(w, "UNIVERSE SUMMARY")
	t.AppendRows([]table.Row{
		{"Symbols", len(u.Results)},
		{"Profitable", u.ProfitableRuns},
		{"Avg Return", pct(u.AvgReturnPct)},
		{"Avg Sharpe", fmt.Sprintf("%.2f", u.AvgSharpe)},
		{"Worst Drawdown", pct(u.WorstDrawdown)},
		{"Closed Trades", u.TotalTrades},
	})
	if len(u.Skipped) > 0 {
		t.AppendSeparator()
		syms := make([]string, 0, len(u.Skipped))
		for s := range u.Skipped {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		for _, s := range syms {
			t.AppendRow(table.Row{"Skipped " + s, u.Skipped[s].Error()})
		}
	}
	t.Render()
}

// Scores prints score rows in the given order.
func Scores(w io.Writer, title string, rows []scores.ScoreRow) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Symbol", "Score", "Close", "ATR"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Symbol, fmt.Sprintf("%.1f", r.Score), money(r.Close), fmt.Sprintf("%.2f", r.ATR)})
	}
	t.AppendFooter(table.Row{"Total", len(rows)})
	t.SetColumnConfigs(rightFrom(2, 4))
	t.Render()
}

// Screen prints the candidates of a screen run and the resulting book.
func Screen(w io.Writer, rep screen.Report) {
	t := newTable(w, fmt.Sprintf("SCREEN %s", rep.Universe))
	t.AppendHeader(table.Row{"Symbol", "Score", "Close", "SMA", "ATR", "Shares", "Stop", "Target", "Risk", "Status"})
	for _, c := range rep.Candidates {
		t.AppendRow(table.Row{
			c.Row.Symbol,
			fmt.Sprintf("%.1f", c.Row.Score),
			money(c.Row.Close),
			money(c.Latest.TrendBaseline),
			fmt.Sprintf("%.2f", c.Row.ATR),
			c.Position.Shares,
			money(c.Position.StopLoss),
			money(c.Position.TakeProfit),
			money(c.Position.RiskAmount),
			status(c),
		})
	}
	t.SetColumnConfigs(rightFrom(2, 9))
	t.Render()

	s := newTable(w, "SUMMARY")
	s.AppendRows([]table.Row{
		{"Scored", rep.Scored},
		{"Above threshold", rep.AboveScore},
		{"Below trend", len(rep.BelowTrend)},
		{"Skipped", len(rep.Skipped)},
		{"Candidates", len(rep.Candidates)},
		{"Submitted", rep.Submitted},
		{"Portfolio risk", pct(rep.Portfolio.TotalRiskPct * 100)},
	})
	s.Render()
}

func status(c screen.Candidate) string {
	switch {
	case c.Err != nil:
		return "error: " + c.Err.Error()
	case c.OrderID != "":
		return "submitted " + c.OrderID
	case c.Position.Shares == 0:
		return "not tradable"
	case !c.Decision.Allowed:
		codes := ""
		for i, v := range c.Decision.Violations {
			if i > 0 {
				codes += ","
			}
			codes += v.Code
		}
		return "rejected " + codes
	}
	return "ok"
}

// Positions prints a book sorted by ticker with its aggregate risk.
func Positions(w io.Writer, positions map[string]risk.Position, pr risk.PortfolioRisk) {
	tickers := make([]string, 0, len(positions))
	for k := range positions {
		tickers = append(tickers, k)
	}
	sort.Strings(tickers)

	t := newTable(w, "POSITIONS")
	t.AppendHeader(table.Row{"Ticker", "Entry", "Shares", "Stop", "Target", "Value", "Risk", "Risk %"})
	for _, k := range tickers {
		p := positions[k]
		t.AppendRow(table.Row{
			k,
			money(p.EntryPrice),
			p.Shares,
			money(p.StopLoss),
			money(p.TakeProfit),
			money(p.DollarAmount),
			money(p.RiskAmount),
			pct(p.RiskPct * 100),
		})
	}
	t.AppendFooter(table.Row{"Total", "", "", "", "", money(pr.TotalValue), money(pr.TotalRiskAmount), pct(pr.TotalRiskPct * 100)})
	t.SetColumnConfigs(rightFrom(2, 8))
	t.Render()
}

// Runs prints journaled backtest runs in the order given.
func Runs(w io.Writer, runs []journal.BacktestRun) {
	t := newTable(w, "JOURNALED RUNS")
	t.AppendHeader(table.Row{"Run", "Created", "Universe", "Symbol", "Threshold", "Trades", "Return", "Max DD", "Sharpe"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.RunID,
			r.Created.Format("2006-01-02 15:04"),
			r.Universe,
			r.Symbol,
			r.Threshold,
			r.Trades,
			pct(r.ReturnPct),
			pct(r.MaxDDPct),
			fmt.Sprintf("%.2f", r.Sharpe),
		})
	}
	t.SetColumnConfigs(rightFrom(5, 9))
	t.Render()
}
