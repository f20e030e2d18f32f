// Package backtest replays entry and exit signals over a daily close series
// and reports the equity curve and performance statistics.
package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/screener/errs"
)

// Options controls a simulation. Fees and slippage are fractions of traded
// notional (0.001 = 10 bps).
type Options struct {
	InitialCash  float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeRate      float64 `json:"fee_rate" yaml:"fee_rate"`
	SlippageRate float64 `json:"slippage_rate" yaml:"slippage_rate"`
	Accumulate   bool    `json:"accumulate" yaml:"accumulate"`
}

// DefaultOptions is 100k cash, 10 bps fees, 10 bps slippage, accumulating.
func DefaultOptions() Options {
	return Options{
		InitialCash:  100_000,
		FeeRate:      0.001,
		SlippageRate: 0.001,
		Accumulate:   true,
	}
}

// Trade is one round trip. An Open trade is still held at the last bar and
// is marked at that bar's close.
type Trade struct {
	EntryIdx   int
	ExitIdx    int // -1 while open
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64 // average fill including slippage
	ExitPrice  float64 // fill including slippage, or last close while open
	Shares     float64
	Fees       float64
	PnL        float64
	Open       bool
}

// Result is the output of one simulation run. It is never mutated after Run
// returns.
type Result struct {
	Symbol string
	RunID  string // set when the run is journaled

	TotalReturnPct float64
	MaxDrawdownPct float64 // <= 0
	SharpeRatio    float64 // 0 when undefined

	InitialCash float64
	FinalEquity float64
	EquityCurve []float64
	Dates       []time.Time

	Trades      []Trade
	TradeCount  int // closed trades
	WinRate     float64
	ExposurePct float64 // share of bars with an open position
	TotalFees   float64
}

type position struct {
	shares   float64
	cost     float64 // cash spent including fees
	fees     float64
	entryIdx int
}

type engine struct {
	opts   Options
	prices []float64
	dates  []time.Time

	cash   float64
	pos    position
	trades []Trade
	fees   float64
}

// Run simulates a long-only strategy over prices. On a bar with an entry
// signal all available cash is invested at the close; on a bar with an exit
// signal an open position is sold in full. A bar carrying both signals is
// ignored. Equity is marked at every close.
func Run(prices []float64, entries, exits []bool, opts Options) (Result, error) {
	return run(prices, nil, entries, exits, opts)
}

func run(prices []float64, dates []time.Time, entries, exits []bool, opts Options) (Result, error) {
	const op = "backtest.run"
	if err := validate(prices, entries, exits, opts); err != nil {
		return Result{}, err
	}
	if dates != nil && len(dates) != len(prices) {
		return Result{}, errs.Simulation(op, "%d dates for %d prices", len(dates), len(prices))
	}

	e := &engine{opts: opts, prices: prices, dates: dates, cash: opts.InitialCash}
	equity := make([]float64, len(prices))
	held := 0

	for i, px := range prices {
		entry, exit := entries[i], exits[i]
		switch {
		case entry && exit:
			// conflicting signals on one bar
		case exit && e.pos.shares > 0:
			e.sell(i)
		case entry:
			if e.pos.shares == 0 || opts.Accumulate {
				e.buy(i)
			}
		}

		if e.pos.shares > 0 {
			held++
		}
		equity[i] = e.cash + e.pos.shares*px
	}

	last := len(prices) - 1
	if e.pos.shares > 0 {
		e.trades = append(e.trades, e.trade(last, prices[last], 0, true))
	}

	r := Result{
		InitialCash:    opts.InitialCash,
		FinalEquity:    equity[last],
		EquityCurve:    equity,
		Dates:          dates,
		Trades:         e.trades,
		TotalFees:      e.fees,
		ExposurePct:    float64(held) / float64(len(prices)) * 100,
		TotalReturnPct: TotalReturnPct(opts.InitialCash, equity[last]),
		MaxDrawdownPct: MaxDrawdownPct(equity),
		SharpeRatio:    SharpeRatio(Returns(equity)),
	}
	r.TradeCount, r.WinRate = winRate(e.trades)
	return r, nil
}

func validate(prices []float64, entries, exits []bool, opts Options) error {
	const op = "backtest.run"
	if len(prices) == 0 {
		return errs.Simulation(op, "empty price series")
	}
	if len(entries) != len(prices) || len(exits) != len(prices) {
		return errs.Simulation(op, "signal length mismatch: %d prices, %d entries, %d exits",
			len(prices), len(entries), len(exits))
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return errs.Simulation(op, "bad close %v at bar %d", p, i)
		}
	}
	if !(opts.InitialCash > 0) {
		return errs.Simulation(op, "initial cash must be positive, got %v", opts.InitialCash)
	}
	if opts.FeeRate < 0 || opts.SlippageRate < 0 || opts.FeeRate >= 1 || opts.SlippageRate >= 1 {
		return errs.Simulation(op, "fee %v and slippage %v must be in [0,1)", opts.FeeRate, opts.SlippageRate)
	}
	return nil
}

// buy spends all cash: notional + fee = cash.
func (e *engine) buy(i int) {
	if e.cash <= 0 {
		return
	}
	fill := e.prices[i] * (1 + e.opts.SlippageRate)
	notional := e.cash / (1 + e.opts.FeeRate)
	fee := e.cash - notional

	if e.pos.shares == 0 {
		e.pos = position{entryIdx: i}
	}
	e.pos.shares += notional / fill
	e.pos.cost += e.cash
	e.pos.fees += fee
	e.fees += fee
	e.cash = 0
}

func (e *engine) sell(i int) {
	fill := e.prices[i] * (1 - e.opts.SlippageRate)
	notional := e.pos.shares * fill
	fee := notional * e.opts.FeeRate

	e.fees += fee
	e.cash += notional - fee
	e.trades = append(e.trades, e.trade(i, fill, fee, false))
	e.pos = position{}
}

func (e *engine) trade(exitIdx int, exitPx, exitFee float64, open bool) Trade {
	p := e.pos
	t := Trade{
		EntryIdx:   p.entryIdx,
		ExitIdx:    exitIdx,
		EntryPrice: (p.cost - p.fees) / p.shares,
		ExitPrice:  exitPx,
		Shares:     p.shares,
		Fees:       p.fees + exitFee,
		PnL:        p.shares*exitPx - exitFee - p.cost,
		Open:       open,
	}
	if open {
		t.ExitIdx = -1
	}
	if e.dates != nil {
		t.EntryTime = e.dates[p.entryIdx]
		if !open {
			t.ExitTime = e.dates[exitIdx]
		}
	}
	return t
}

func winRate(trades []Trade) (closed int, pct float64) {
	wins := 0
	for _, t := range trades {
		if t.Open {
			continue
		}
		closed++
		if t.PnL > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0, 0
	}
	return closed, float64(wins) / float64(closed) * 100
}
