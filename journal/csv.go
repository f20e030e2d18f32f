package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVJournal writes runs, trades and equity points to runs.csv, trades.csv
// and equity.csv in one directory.
type CSVJournal struct {
	runs   *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
	files  []*os.File
}

var (
	runsHeader   = []string{"run_id", "created", "universe", "symbol", "strategy", "threshold", "start_date", "end_date", "trades", "wins", "losses", "start_balance", "end_balance", "net_pl", "return_pct", "max_dd_pct", "sharpe", "win_rate", "exposure_pct", "total_fees", "config"}
	tradesHeader = []string{"run_id", "seq", "symbol", "shares", "entry_price", "exit_price", "open_time", "close_time", "fees", "realized_pl", "reason"}
	equityHeader = []string{"run_id", "seq", "time", "equity"}
)

// NewCSV creates dir if needed and truncates the three files in it.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}
	for _, spec := range []struct {
		name   string
		header []string
		w      **csv.Writer
	}{
		{"runs.csv", runsHeader, &j.runs},
		{"trades.csv", tradesHeader, &j.trades},
		{"equity.csv", equityHeader, &j.equity},
	} {
		fh, err := os.Create(filepath.Join(dir, spec.name))
		if err != nil {
			j.closeFiles()
			return nil, err
		}
		j.files = append(j.files, fh)

		w := csv.NewWriter(fh)
		if err := w.Write(spec.header); err != nil {
			j.closeFiles()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return nil, err
		}
		*spec.w = w
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(ctx context.Context, r BacktestRun) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Universe,
		r.Symbol,
		r.Strategy,
		f(r.Threshold),
		day(r.Start),
		day(r.End),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		f(r.StartBalance),
		f(r.EndBalance),
		f(r.NetPL),
		f(r.ReturnPct),
		f(r.MaxDDPct),
		f(r.Sharpe),
		f(r.WinRate),
		f(r.ExposurePct),
		f(r.TotalFees),
		r.Config,
	})
	if err != nil {
		return err
	}
	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) RecordTrade(ctx context.Context, t TradeRecord) error {
	closeTime := ""
	if !t.CloseTime.IsZero() {
		closeTime = t.CloseTime.Format(time.RFC3339)
	}
	err := j.trades.Write([]string{
		t.RunID,
		strconv.Itoa(t.Seq),
		t.Symbol,
		f(t.Shares),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		closeTime,
		f(t.Fees),
		f(t.RealizedPL),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(ctx context.Context, points []EquityPoint) error {
	for _, p := range points {
		err := j.equity.Write([]string{
			p.RunID,
			strconv.Itoa(p.Seq),
			p.Time.Format(time.RFC3339),
			f(p.Equity),
		})
		if err != nil {
			return err
		}
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.runs, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	var first error
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
