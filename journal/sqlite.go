package journal

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(ctx context.Context, r BacktestRun) error {
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, created, universe, symbol, strategy, config, threshold, start_date, end_date,
		 trades, wins, losses, start_balance, end_balance, net_pl, return_pct, max_dd_pct,
		 sharpe, win_rate, exposure_pct, total_fees)
		VALUES
		(:run_id, :created, :universe, :symbol, :strategy, :config, :threshold, :start_date, :end_date,
		 :trades, :wins, :losses, :start_balance, :end_balance, :net_pl, :return_pct, :max_dd_pct,
		 :sharpe, :win_rate, :exposure_pct, :total_fees)`, r)
	return err
}

func (j *SQLite) RecordTrade(ctx context.Context, t TradeRecord) error {
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO trades
		(run_id, seq, symbol, shares, entry_price, exit_price, open_time, close_time, fees, realized_pl, reason)
		VALUES
		(:run_id, :seq, :symbol, :shares, :entry_price, :exit_price, :open_time, :close_time, :fees, :realized_pl, :reason)`, t)
	return err
}

// RecordEquity writes the points in one transaction.
func (j *SQLite) RecordEquity(ctx context.Context, points []EquityPoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO equity_points (run_id, seq, time, equity)
		VALUES (:run_id, :seq, :time, :equity)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ExportBacktestOrg loads a run and returns its Org block followed by its
// trades.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := run.RenderOrg(&buf); err != nil {
		return "", fmt.Errorf("failed to render run %s: %w", runID, err)
	}
	if len(trades) > 0 {
		buf.WriteString("\n** Trades\n")
		buf.WriteString(FormatTradesOrg(trades))
	}
	return buf.String(), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
