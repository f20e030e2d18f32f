package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/screener/backtest"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
)

// WriteEquityXLSX writes a workbook with a summary sheet, a trades sheet and
// one equity curve sheet per result.
func WriteEquityXLSX(path string, results []backtest.Result) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	header, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]any{{"Symbol", "Return %", "Max DD %", "Sharpe", "Trades", "Win Rate %", "Exposure %", "Fees", "Initial", "Final"}}
	trades := [][]any{{"Symbol", "Entry Date", "Exit Date", "Entry", "Exit", "Shares", "Fees", "PnL", "Open"}}
	for _, r := range results {
		summary = append(summary, []any{
			r.Symbol, r.TotalReturnPct, r.MaxDrawdownPct, r.SharpeRatio, r.TradeCount,
			r.WinRate, r.ExposurePct, r.TotalFees, r.InitialCash, r.FinalEquity,
		})
		for _, t := range r.Trades {
			trades = append(trades, []any{
				r.Symbol, date(t.EntryTime), date(t.ExitTime), t.EntryPrice, t.ExitPrice, t.Shares, t.Fees, t.PnL, t.Open,
			})
		}

		sheet := sheetName(r.Symbol)
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
		rows := [][]any{{"Bar", "Date", "Equity", "Drawdown %"}}
		peak := 0.0
		for i, eq := range r.EquityCurve {
			if eq > peak {
				peak = eq
			}
			d := ""
			if i < len(r.Dates) {
				d = date(r.Dates[i])
			}
			rows = append(rows, []any{i, d, eq, (eq - peak) / peak * 100})
		}
		if err := writeRows(fx, sheet, rows, header); err != nil {
			return err
		}
	}

	if err := writeRows(fx, summarySheet, summary, header); err != nil {
		return err
	}
	if err := writeRows(fx, tradesSheet, trades, header); err != nil {
		return err
	}
	fx.SetActiveSheet(0)
	return fx.SaveAs(path)
}

func writeRows(fx *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := fx.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	return fx.SetColWidth(sheet, "A", lastCol, 14)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// sheetName keeps a symbol within Excel's 31 character sheet name limit and
// away from the fixed sheet names.
func sheetName(symbol string) string {
	name := "EQ " + symbol
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
