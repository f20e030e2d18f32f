package screen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/screener/broker"
	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/risk"
	"github.com/rustyeddy/screener/scores"
)

type staticScores struct {
	table scores.ScoreTable
	err   error
}

func (s staticScores) GetScores(ctx context.Context, universe string) (scores.ScoreTable, error) {
	return s.table, s.err
}

// trendPrices serves 250 rising bars for symbols in up and falling bars for
// symbols in down.
type trendPrices struct {
	up, down map[string]bool
}

func (p trendPrices) History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	var step, base float64
	switch {
	case p.up[symbol]:
		base, step = 50, 0.5
	case p.down[symbol]:
		base, step = 200, -0.5
	default:
		return market.Series{}, errs.Unavailable("test", symbol, errors.New("no prices"))
	}
	s := market.Series{Symbol: symbol}
	for i := 0; i < 250; i++ {
		c := base + step*float64(i)
		s.Bars = append(s.Bars, market.PriceBar{
			Symbol: symbol,
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
		})
	}
	return s, nil
}

func testTable() scores.ScoreTable {
	return scores.ScoreTable{
		Universe:   "test",
		ComputedAt: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Rows: map[string]scores.ScoreRow{
			"UP1":    {Symbol: "UP1", Score: 9, Close: 100, ATR: 2},
			"DOWN":   {Symbol: "DOWN", Score: 8.5, Close: 100, ATR: 2},
			"UP2":    {Symbol: "UP2", Score: 8, Close: 50, ATR: 1},
			"NOHIST": {Symbol: "NOHIST", Score: 7.5, Close: 20, ATR: 1},
			"LOW":    {Symbol: "LOW", Score: 5, Close: 30, ATR: 1},
		},
	}
}

func newScreener(b broker.Broker) (*Screener, *risk.Manager) {
	m := risk.NewManager(100_000, 0.01, 0.05)
	return &Screener{
		Scores:  staticScores{table: testTable()},
		Prices:  trendPrices{up: map[string]bool{"UP1": true, "UP2": true}, down: map[string]bool{"DOWN": true}},
		Sizer:   risk.CappedRiskSizer{Manager: m, RiskMultiple: 2},
		Manager: m,
		Broker:  b,
	}, m
}

func testOptions() Options {
	nop := zerolog.Nop()
	return Options{
		Universe:  "test",
		Threshold: 7,
		Policy:    risk.DefaultPolicy(),
		Logger:    &nop,
		Now:       func() time.Time { return time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC) },
	}
}

func TestRunFullFlow(t *testing.T) {
	t.Parallel()

	paper := broker.NewPaper(zerolog.Nop())
	s, m := newScreener(paper)

	rep, err := s.Run(context.Background(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Scored)
	assert.Equal(t, 4, rep.AboveScore)
	assert.Equal(t, []string{"DOWN"}, rep.BelowTrend)
	require.Contains(t, rep.Skipped, "NOHIST")
	assert.True(t, errors.Is(rep.Skipped["NOHIST"], errs.ErrDataUnavailable))

	require.Len(t, rep.Candidates, 2)
	up1 := rep.Candidates[0]
	assert.Equal(t, "UP1", up1.Row.Symbol)
	assert.True(t, up1.Latest.AboveTrend)
	assert.Equal(t, 50, up1.Position.Shares)
	assert.Equal(t, 96.0, up1.Position.StopLoss)
	assert.Equal(t, 108.0, up1.Position.TakeProfit)
	assert.True(t, up1.Decision.Allowed, "%v", up1.Decision.Violations)
	assert.NotEmpty(t, up1.OrderID)
	assert.NoError(t, up1.Err)

	up2 := rep.Candidates[1]
	assert.Equal(t, "UP2", up2.Row.Symbol)
	assert.Equal(t, 100, up2.Position.Shares)
	assert.Equal(t, 54.0, up2.Position.TakeProfit)

	assert.Equal(t, 2, rep.Submitted)
	assert.Len(t, paper.Orders(), 2)
	assert.Equal(t, map[string]int{"UP1": 50, "UP2": 100}, paper.Open())

	assert.Equal(t, 2, rep.Portfolio.PositionCount)
	assert.InDelta(t, 400, rep.Portfolio.TotalRiskAmount, 1e-9)
	assert.ElementsMatch(t, []string{"UP1", "UP2"}, m.Tickers())
}

func TestRunTopNWithoutBroker(t *testing.T) {
	t.Parallel()

	s, _ := newScreener(nil)
	o := testOptions()
	o.TopN = 1

	rep, err := s.Run(context.Background(), o)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 1)
	assert.Equal(t, "UP1", rep.Candidates[0].Row.Symbol)
	assert.Empty(t, rep.Candidates[0].OrderID)
	assert.Zero(t, rep.Submitted)
	assert.Empty(t, rep.BelowTrend, "run stops once top N is reached")
}

func TestRunPolicyRejects(t *testing.T) {
	t.Parallel()

	paper := broker.NewPaper(zerolog.Nop())
	s, m := newScreener(paper)
	o := testOptions()
	o.RiskReward = 1

	rep, err := s.Run(context.Background(), o)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 2)
	for _, c := range rep.Candidates {
		assert.False(t, c.Decision.Allowed)
		assert.True(t, c.Decision.Has("RR_TOO_LOW"))
		assert.Empty(t, c.OrderID)
	}
	assert.Empty(t, paper.Orders())
	assert.Empty(t, m.Tickers())
}

func TestRunScoreFailure(t *testing.T) {
	t.Parallel()

	s, _ := newScreener(nil)
	s.Scores = staticScores{err: errs.Unavailable("scores.get", "", errors.New("empty universe"))}

	_, err := s.Run(context.Background(), testOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDataUnavailable))
}
