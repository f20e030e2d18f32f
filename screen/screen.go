// Package screen runs the nightly screening flow: score the universe, keep
// high-quality names trading above their trend baseline, size the best of
// them and optionally hand bracket orders to a broker.
package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/screener/broker"
	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/provider"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/scores"
	"github.com/rustyeddy/screener/signal"
)

// ScoreSource is satisfied by *scores.Cache.
type ScoreSource interface {
	GetScores(ctx context.Context, universe string) (scores.ScoreTable, error)
}

// Options controls one screening run.
type Options struct {
	Universe   string
	Threshold  float64
	MinPrice   float64 // 0 disables
	MaxPrice   float64 // 0 disables
	TopN       int     // 0 keeps every candidate
	Params     signal.Params
	RiskReward float64 // take profit multiple of the stop distance, 0 means 2
	Policy     risk.Policy
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// Screener wires the collaborators of a run. Broker may be nil, in which
// case nothing is submitted.
type Screener struct {
	Scores  ScoreSource
	Prices  provider.PriceHistory
	Sizer   risk.Sizer
	Manager *risk.Manager
	Broker  broker.Broker
}

// Candidate is one symbol that passed the score and trend filters.
type Candidate struct {
	Row      scores.ScoreRow
	Latest   signal.Latest
	Position risk.Position
	Decision risk.Decision
	OrderID  string
	Err      error // sizing or submission failure
}

// Report is the outcome of a run.
type Report struct {
	Universe   string
	ComputedAt time.Time
	Scored     int
	AboveScore int
	BelowTrend []string
	Skipped    map[string]error
	Candidates []Candidate
	Submitted  int
	Portfolio  risk.PortfolioRisk
}

// Run executes the flow. Per-symbol failures are recorded in the report;
// only a failure to obtain the score table aborts the run.
func (s *Screener) Run(ctx context.Context, o Options) (Report, error) {
	logger := log.Logger
	if o.Logger != nil {
		logger = *o.Logger
	}
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	rr := o.RiskReward
	if rr <= 0 {
		rr = risk.DefaultRiskReward
	}

	table, err := s.Scores.GetScores(ctx, o.Universe)
	if err != nil {
		return Report{}, fmt.Errorf("screen %s: %w", o.Universe, err)
	}

	rows := table.Select(scores.Filter{MinScore: o.Threshold, MinPrice: o.MinPrice, MaxPrice: o.MaxPrice})
	rep := Report{
		Universe:   o.Universe,
		ComputedAt: table.ComputedAt,
		Scored:     table.Len(),
		AboveScore: len(rows),
		Skipped:    map[string]error{},
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if o.TopN > 0 && len(rep.Candidates) >= o.TopN {
			break
		}

		latest, err := s.trend(ctx, row, o)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			logger.Warn().Str("symbol", row.Symbol).Err(err).Msg("skipping symbol")
			rep.Skipped[row.Symbol] = err
			continue
		}
		if !latest.AboveTrend {
			rep.BelowTrend = append(rep.BelowTrend, row.Symbol)
			continue
		}

		c := Candidate{Row: row, Latest: latest}
		s.size(ctx, &c, rr, o.Policy, now())
		if c.OrderID != "" {
			rep.Submitted++
		}
		rep.Candidates = append(rep.Candidates, c)
	}

	if s.Manager != nil {
		rep.Portfolio = s.Manager.PortfolioRisk()
	}
	logger.Info().
		Str("universe", o.Universe).
		Int("scored", rep.Scored).
		Int("above_score", rep.AboveScore).
		Int("candidates", len(rep.Candidates)).
		Int("submitted", rep.Submitted).
		Msg("screen done")
	return rep, nil
}

// trend rebuilds the signal frame from price history and returns the last
// bar's state.
func (s *Screener) trend(ctx context.Context, row scores.ScoreRow, o Options) (signal.Latest, error) {
	series, err := s.Prices.History(ctx, row.Symbol, time.Time{}, time.Time{})
	if err != nil {
		return signal.Latest{}, err
	}
	frame := signal.BuildSignalsWith(signal.NewFrame(series, row.Score), o.Threshold, o.Params)
	latest, ok := signal.LatestOf(frame)
	if !ok {
		return signal.Latest{}, errs.Unavailable("screen.trend", row.Symbol, errors.New("empty price history"))
	}
	return latest, nil
}

// size fills in the position, the policy decision and, when a broker is
// set and the trade is allowed, the order ID. Allowed positions join the
// manager's book so later candidates see the accumulated risk.
func (s *Screener) size(ctx context.Context, c *Candidate, rr float64, policy risk.Policy, now time.Time) {
	if s.Sizer == nil {
		return
	}
	pos, err := s.Sizer.Size(c.Row.Symbol, c.Row.Close, c.Row.ATR)
	if err != nil {
		c.Err = err
		return
	}
	if pos.Tradable() {
		pos.TakeProfit = risk.TakeProfit(pos.EntryPrice, pos.StopLoss, rr)
	}
	c.Position = pos

	var book risk.PortfolioRisk
	account := 0.0
	if s.Manager != nil {
		book = s.Manager.PortfolioRisk()
		account = s.Manager.AccountSize
	}
	c.Decision = risk.Evaluate(policy, risk.IntentFor(pos, now), account, book)
	if !c.Decision.Allowed {
		return
	}
	if s.Manager != nil {
		s.Manager.AddPosition(pos.Ticker, pos)
	}

	if s.Broker == nil {
		return
	}
	order, err := broker.FromPosition(pos)
	if err != nil {
		c.Err = err
		return
	}
	id, err := s.Broker.SubmitBracket(ctx, order)
	if err != nil {
		c.Err = err
		return
	}
	c.OrderID = id
}
