package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `run_id, created, universe, symbol, strategy, config, threshold, start_date, end_date,
	trades, wins, losses, start_balance, end_balance, net_pl, return_pct, max_dd_pct,
	sharpe, win_rate, exposure_pct, total_fees`

// GetBacktestRun returns a single run by ID.
func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	var run BacktestRun
	err := j.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return BacktestRun{}, err
	}
	return run, nil
}

// ListRuns returns runs newest first. An empty symbol lists every run.
func (j *SQLite) ListRuns(ctx context.Context, symbol string) ([]BacktestRun, error) {
	var runs []BacktestRun
	var err error
	if symbol == "" {
		err = j.db.SelectContext(ctx, &runs, `SELECT `+runColumns+` FROM backtest_runs ORDER BY run_id DESC`)
	} else {
		err = j.db.SelectContext(ctx, &runs, `SELECT `+runColumns+` FROM backtest_runs WHERE symbol = ? ORDER BY run_id DESC`, symbol)
	}
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// ListTradesByRunID returns the trades of a run in order.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.db.SelectContext(ctx, &out, `
		SELECT run_id, seq, symbol, shares, entry_price, exit_price, open_time, close_time, fees, realized_pl, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRunID returns the equity curve of a run in bar order.
func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquityPoint, error) {
	var out []EquityPoint
	err := j.db.SelectContext(ctx, &out, `
		SELECT run_id, seq, time, equity
		FROM equity_points
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesClosedBetween returns closed trades of every run whose close_time
// is within [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.db.SelectContext(ctx, &out, `
		SELECT run_id, seq, symbol, shares, entry_price, exit_price, open_time, close_time, fees, realized_pl, reason
		FROM trades
		WHERE reason != 'open' AND close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, run_id ASC, seq ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	/* Can add this
	GrossProfit = sum(realized_pl where >0)
	GrossLoss = abs(sum(realized_pl where <0))
	ProfitFactor = GrossProfit / GrossLoss (if GrossLoss > 0)
	*/

	return out, nil
}
