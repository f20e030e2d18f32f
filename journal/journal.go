// journal/journal.go
package journal

import (
	"context"
	"time"
)

// TradeRecord is one simulated round trip of a journaled run.
type TradeRecord struct {
	RunID      string    `db:"run_id"`
	Seq        int       `db:"seq"`
	Symbol     string    `db:"symbol"`
	Shares     float64   `db:"shares"`
	EntryPrice float64   `db:"entry_price"`
	ExitPrice  float64   `db:"exit_price"`
	OpenTime   time.Time `db:"open_time"`
	CloseTime  time.Time `db:"close_time"` // zero while open
	Fees       float64   `db:"fees"`
	RealizedPL float64   `db:"realized_pl"`
	Reason     string    `db:"reason"` // exit_signal or open
}

// EquityPoint is one bar of a run's equity curve.
type EquityPoint struct {
	RunID  string    `db:"run_id"`
	Seq    int       `db:"seq"`
	Time   time.Time `db:"time"`
	Equity float64   `db:"equity"`
}

type Journal interface {
	RecordRun(ctx context.Context, run BacktestRun) error
	RecordTrade(ctx context.Context, t TradeRecord) error
	RecordEquity(ctx context.Context, points []EquityPoint) error
	Close() error
}

// Multi records into every journal in order and stops at the first error.
func Multi(js ...Journal) Journal { return multi(js) }

type multi []Journal

func (m multi) RecordRun(ctx context.Context, run BacktestRun) error {
	for _, j := range m {
		if err := j.RecordRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) RecordTrade(ctx context.Context, t TradeRecord) error {
	for _, j := range m {
		if err := j.RecordTrade(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) RecordEquity(ctx context.Context, points []EquityPoint) error {
	for _, j := range m {
		if err := j.RecordEquity(ctx, points); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every journal and returns the first error.
func (m multi) Close() error {
	var first error
	for _, j := range m {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
