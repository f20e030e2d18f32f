package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/screener/backtest"
	"github.com/rustyeddy/screener/pkg/id"
	"github.com/rustyeddy/screener/signal"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string    `db:"run_id"`
	Created time.Time `db:"created"`

	Universe  string  `db:"universe"`
	Symbol    string  `db:"symbol"`
	Strategy  string  `db:"strategy"`
	Config    string  `db:"config"` // JSON of signal params and simulator options
	Threshold float64 `db:"threshold"`

	// Price window replayed
	Start time.Time `db:"start_date"`
	End   time.Time `db:"end_date"`

	// Results
	Trades int `db:"trades"`
	Wins   int `db:"wins"`
	Losses int `db:"losses"`

	StartBalance float64 `db:"start_balance"`
	EndBalance   float64 `db:"end_balance"`

	NetPL       float64 `db:"net_pl"`
	ReturnPct   float64 `db:"return_pct"`
	MaxDDPct    float64 `db:"max_dd_pct"`
	Sharpe      float64 `db:"sharpe"`
	WinRate     float64 `db:"win_rate"` // percent of closed trades
	ExposurePct float64 `db:"exposure_pct"`
	TotalFees   float64 `db:"total_fees"`

	OrgPath string   `db:"-"`
	Notes   []string `db:"-"`
}

// StrategyName identifies the quality-score plus trend rule in the journal.
const StrategyName = "quality_trend"

// RunMeta is what the journal needs to know about a run beyond its result.
type RunMeta struct {
	Universe  string
	Threshold float64
	Params    signal.Params
	Options   backtest.Options
	Created   time.Time // zero means now
}

// FromResult converts a simulation result into journal rows. The run ID is a
// ULID stamped with meta.Created.
func FromResult(res backtest.Result, meta RunMeta) (BacktestRun, []TradeRecord, []EquityPoint, error) {
	created := meta.Created
	if created.IsZero() {
		created = time.Now()
	}
	cfg, err := json.Marshal(struct {
		Params  signal.Params    `json:"params"`
		Options backtest.Options `json:"options"`
	}{meta.Params, meta.Options})
	if err != nil {
		return BacktestRun{}, nil, nil, fmt.Errorf("failed to encode run config: %w", err)
	}

	run := BacktestRun{
		RunID:        id.NewAt(created),
		Created:      created.UTC(),
		Universe:     meta.Universe,
		Symbol:       res.Symbol,
		Strategy:     StrategyName,
		Config:       string(cfg),
		Threshold:    meta.Threshold,
		Trades:       res.TradeCount,
		StartBalance: res.InitialCash,
		EndBalance:   res.FinalEquity,
		NetPL:        res.FinalEquity - res.InitialCash,
		ReturnPct:    res.TotalReturnPct,
		MaxDDPct:     res.MaxDrawdownPct,
		Sharpe:       res.SharpeRatio,
		WinRate:      res.WinRate,
		ExposurePct:  res.ExposurePct,
		TotalFees:    res.TotalFees,
	}
	if n := len(res.Dates); n > 0 {
		run.Start, run.End = res.Dates[0].UTC(), res.Dates[n-1].UTC()
	}

	trades := make([]TradeRecord, 0, len(res.Trades))
	for i, t := range res.Trades {
		rec := TradeRecord{
			RunID:      run.RunID,
			Seq:        i + 1,
			Symbol:     res.Symbol,
			Shares:     t.Shares,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			OpenTime:   t.EntryTime.UTC(),
			CloseTime:  t.ExitTime.UTC(),
			Fees:       t.Fees,
			RealizedPL: t.PnL,
			Reason:     "exit_signal",
		}
		if t.Open {
			rec.Reason = "open"
			rec.CloseTime = time.Time{}
		} else if t.PnL > 0 {
			run.Wins++
		} else {
			run.Losses++
		}
		trades = append(trades, rec)
	}

	points := make([]EquityPoint, len(res.EquityCurve))
	for i, eq := range res.EquityCurve {
		points[i] = EquityPoint{RunID: run.RunID, Seq: i, Equity: eq}
		if i < len(res.Dates) {
			points[i].Time = res.Dates[i].UTC()
		}
	}
	return run, trades, points, nil
}

// Save journals one run with its trades and equity curve and returns the
// stored run.
func Save(ctx context.Context, j Journal, res backtest.Result, meta RunMeta) (BacktestRun, error) {
	run, trades, points, err := FromResult(res, meta)
	if err != nil {
		return BacktestRun{}, err
	}
	if err := j.RecordRun(ctx, run); err != nil {
		return BacktestRun{}, fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	for _, t := range trades {
		if err := j.RecordTrade(ctx, t); err != nil {
			return BacktestRun{}, fmt.Errorf("failed to record trade %d of run %s: %w", t.Seq, run.RunID, err)
		}
	}
	if err := j.RecordEquity(ctx, points); err != nil {
		return BacktestRun{}, fmt.Errorf("failed to record equity of run %s: %w", run.RunID, err)
	}
	return run, nil
}

var backtestOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// RenderOrg writes the run as an Org-mode entry.
func (v *BacktestRun) RenderOrg(w io.Writer) error {
	return backtestOrg.Execute(w, v)
}

// WriteBacktestOrg renders the run to OrgPath.
func (v *BacktestRun) WriteBacktestOrg() error {
	if v.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", v.RunID)
	}
	buf := new(bytes.Buffer)
	if err := v.RenderOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: Quality/Trend {{.Symbol}}{{if .Universe}} ({{.Universe}}){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:UNIVERSE:    {{if .Universe}}{{.Universe}}{{else}}(universe?){{end}}
:THRESHOLD:   {{printf "%.1f" .Threshold}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src json
{{.Config}}
#+end_src

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Sharpe:           *{{printf "%.2f" .Sharpe}}*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Exposure:         *{{printf "%.2f" .ExposurePct}}%*
- Fees:             *{{printf "%.2f" .TotalFees}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
