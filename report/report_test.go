package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rustyeddy/screener/backtest"
	"github.com/rustyeddy/screener/journal"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/scores"
	"github.com/rustyeddy/screener/screen"
)

func sampleResult(symbol string) backtest.Result {
	d := func(n int) time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n) }
	return backtest.Result{
		Symbol:         symbol,
		TotalReturnPct: 2,
		MaxDrawdownPct: -1,
		SharpeRatio:    1.25,
		InitialCash:    100,
		FinalEquity:    102,
		EquityCurve:    []float64{100, 101, 99.99, 102},
		Dates:          []time.Time{d(0), d(1), d(2), d(3)},
		Trades: []backtest.Trade{
			{EntryIdx: 0, ExitIdx: 3, EntryTime: d(0), ExitTime: d(3), EntryPrice: 10, ExitPrice: 10.2, Shares: 10, PnL: 2},
		},
		TradeCount:  1,
		WinRate:     100,
		ExposurePct: 100,
	}
}

func TestBacktestsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Backtests(&buf, []backtest.Result{sampleResult("AAPL"), sampleResult("MSFT")})
	out := buf.String()

	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "2.00%")
	assert.Contains(t, out, "-1.00%")
	assert.Contains(t, out, "$102.00")
}

func TestUniverseTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Universe(&buf, backtest.UniverseResult{
		Results:        []backtest.Result{sampleResult("AAPL")},
		Skipped:        map[string]error{"BAD": errors.New("empty price series")},
		AvgReturnPct:   2,
		ProfitableRuns: 1,
	})
	out := buf.String()
	assert.Contains(t, out, "UNIVERSE SUMMARY")
	assert.Contains(t, out, "Skipped BAD")
	assert.Contains(t, out, "empty price series")
}

func TestScoresAndPositionsTables(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Scores(&buf, "SCORES sp500", []scores.ScoreRow{{Symbol: "AAPL", Score: 8, Close: 190.5, ATR: 3.25}})
	assert.Contains(t, buf.String(), "SCORES")
	assert.Contains(t, buf.String(), "$190.50")
	assert.Contains(t, buf.String(), "3.25")

	buf.Reset()
	positions := map[string]risk.Position{
		"MSFT": {Ticker: "MSFT", EntryPrice: 400, Shares: 12, StopLoss: 390, DollarAmount: 4800, RiskAmount: 120, RiskPct: 0.0012},
		"AAPL": {Ticker: "AAPL", EntryPrice: 100, Shares: 50, StopLoss: 96, DollarAmount: 5000, RiskAmount: 200, RiskPct: 0.002},
	}
	Positions(&buf, positions, risk.PortfolioRisk{TotalValue: 9800, TotalRiskAmount: 320, TotalRiskPct: 0.0032, PositionCount: 2})
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("AAPL")), bytes.Index(buf.Bytes(), []byte("MSFT")))
	assert.Contains(t, out, "$9800.00")
	assert.Contains(t, out, "0.32%")
}

func TestScreenTable(t *testing.T) {
	t.Parallel()

	rep := screen.Report{
		Universe:   "sp500",
		Scored:     10,
		AboveScore: 3,
		Candidates: []screen.Candidate{
			{
				Row:      scores.ScoreRow{Symbol: "AAPL", Score: 9, Close: 100, ATR: 2},
				Position: risk.Position{Ticker: "AAPL", Shares: 50, StopLoss: 96, TakeProfit: 108, EntryPrice: 100},
				Decision: risk.Decision{Allowed: true},
				OrderID:  "01ABC",
			},
			{
				Row:      scores.ScoreRow{Symbol: "MSFT", Score: 8, Close: 400, ATR: 5},
				Position: risk.Position{Ticker: "MSFT", Shares: 10, StopLoss: 390, EntryPrice: 400},
				Decision: risk.Decision{Violations: []risk.Violation{{Code: "RR_TOO_LOW"}, {Code: "RISK_TOO_HIGH"}}},
			},
		},
	}

	var buf bytes.Buffer
	Screen(&buf, rep)
	out := buf.String()
	assert.Contains(t, out, "SCREEN")
	assert.Contains(t, out, "submitted 01ABC")
	assert.Contains(t, out, "rejected RR_TOO_LOW,RISK_TOO_HIGH")
}

func TestRunsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Runs(&buf, []journal.BacktestRun{{
		RunID:     "01HZX0000000000000000000AB",
		Created:   time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC),
		Universe:  "sp500",
		Symbol:    "AAPL",
		Threshold: 7,
		Trades:    4,
		ReturnPct: 12.5,
		MaxDDPct:  -8.25,
		Sharpe:    1.1,
	}})
	out := buf.String()
	assert.Contains(t, out, "JOURNALED RUNS")
	assert.Contains(t, out, "01HZX0000000000000000000AB")
	assert.Contains(t, out, "2024-06-03 18:00")
	assert.Contains(t, out, "12.50%")
	assert.Contains(t, out, "-8.25%")
	assert.Contains(t, out, "1.10")
}

func TestWriteEquityXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "equity.xlsx")
	open := sampleResult("MSFT")
	open.Trades = append(open.Trades, backtest.Trade{EntryIdx: 3, ExitIdx: -1, EntryTime: open.Dates[3], Open: true})
	require.NoError(t, WriteEquityXLSX(path, []backtest.Result{sampleResult("AAPL"), open}))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{"Summary", "Trades", "EQ AAPL", "EQ MSFT"}, fx.GetSheetList())

	summary, err := fx.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "Symbol", summary[0][0])
	assert.Equal(t, "AAPL", summary[1][0])
	assert.Equal(t, "2", summary[1][1])

	trades, err := fx.GetRows("Trades")
	require.NoError(t, err)
	require.Len(t, trades, 4)
	assert.Equal(t, "2024-03-04", trades[1][2])
	assert.Equal(t, "TRUE", trades[3][8])
	assert.Equal(t, "", trades[3][2])

	eq, err := fx.GetRows("EQ AAPL")
	require.NoError(t, err)
	require.Len(t, eq, 5)
	assert.Equal(t, []string{"Bar", "Date", "Equity", "Drawdown %"}, eq[0])
	assert.Equal(t, "2024-03-02", eq[2][1])
	assert.Equal(t, "102", eq[4][2])
	assert.Equal(t, "0", eq[4][3])
}

func TestSheetName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EQ AAPL", sheetName("AAPL"))
	assert.Len(t, sheetName("A-VERY-LONG-SYMBOL-NAME-THAT-GOES-ON"), 31)
}
