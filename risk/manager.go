// Package risk sizes long positions from price and ATR, tracks the open book
// and keeps portfolio risk under a ceiling.
package risk

import (
	"errors"
	"math"
	"sort"

	"github.com/rustyeddy/screener/errs"
)

// ErrNoPosition is returned for operations on a ticker that is not in the
// book.
var ErrNoPosition = errors.New("no open position")

const (
	DefaultMaxRiskPct     = 0.01
	DefaultMaxPositionPct = 0.05
	DefaultRiskMultiple   = 2.0
	DefaultRiskReward     = 2.0
)

// Position is a sized long holding. TakeProfit is 0 when unset.
type Position struct {
	Ticker       string  `json:"ticker" yaml:"ticker"`
	EntryPrice   float64 `json:"entry_price" yaml:"entry_price"`
	Shares       int     `json:"shares" yaml:"shares"`
	StopLoss     float64 `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit   float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
	DollarAmount float64 `json:"dollar_amount" yaml:"dollar_amount"`
	RiskAmount   float64 `json:"risk_amount" yaml:"risk_amount"`
	RiskPct      float64 `json:"risk_pct" yaml:"risk_pct"`

	// StopDistance is entry minus the stop set at sizing. Trailing stops
	// measure from it, so it survives later ratchets.
	StopDistance float64 `json:"stop_distance,omitempty" yaml:"stop_distance,omitempty"`
}

// Tradable reports whether the position can be sent as an order.
func (p Position) Tradable() bool {
	return p.Shares > 0 && p.StopLoss < p.EntryPrice
}

// PortfolioRisk aggregates the open book.
type PortfolioRisk struct {
	TotalValue      float64 `json:"total_value"`
	TotalRiskAmount float64 `json:"total_risk_amount"`
	TotalRiskPct    float64 `json:"total_risk_pct"`
	PositionCount   int     `json:"position_count"`
}

// Manager sizes positions and holds the open book for one account.
//
// A Manager is not safe for concurrent use. Give each worker its own
// Manager, or share one through Locked.
type Manager struct {
	AccountSize    float64
	MaxRiskPct     float64
	MaxPositionPct float64

	positions map[string]Position
}

// NewManager returns a Manager with an empty book. Non-positive percentages
// fall back to 1% risk and 5% position size.
func NewManager(accountSize, maxRiskPct, maxPositionPct float64) *Manager {
	if maxRiskPct <= 0 {
		maxRiskPct = DefaultMaxRiskPct
	}
	if maxPositionPct <= 0 {
		maxPositionPct = DefaultMaxPositionPct
	}
	return &Manager{
		AccountSize:    accountSize,
		MaxRiskPct:     maxRiskPct,
		MaxPositionPct: maxPositionPct,
		positions:      map[string]Position{},
	}
}

func bad(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }

// Size converts price and ATR into a capped share count with the stop
// riskMultiple ATRs below price. It does not add the position to the book.
//
// An atr of 0 is valid and yields a zero-share position with the stop at
// price; Tradable reports false for it.
func (m *Manager) Size(ticker string, price, atr, riskMultiple float64) (Position, error) {
	const op = "risk.size"
	switch {
	case ticker == "":
		return Position{}, errs.Invalid(op, "empty ticker")
	case bad(price) || price <= 0:
		return Position{}, errs.Invalid(op, "%s: price must be positive, got %v", ticker, price)
	case bad(atr) || atr < 0:
		return Position{}, errs.Invalid(op, "%s: atr must be >= 0, got %v", ticker, atr)
	case bad(riskMultiple) || riskMultiple <= 0:
		return Position{}, errs.Invalid(op, "%s: risk multiple must be positive, got %v", ticker, riskMultiple)
	}

	stop := price - atr*riskMultiple
	r := Calculate(Inputs{
		Equity:      m.AccountSize,
		RiskPct:     m.MaxRiskPct,
		EntryPrice:  price,
		StopPrice:   stop,
		PositionCap: m.MaxPositionPct,
	})

	p := Position{
		Ticker:       ticker,
		EntryPrice:   price,
		Shares:       r.Shares,
		StopLoss:     stop,
		DollarAmount: r.DollarAmount,
		RiskAmount:   r.RiskAmount,
		StopDistance: price - stop,
	}
	if m.AccountSize > 0 {
		p.RiskPct = p.RiskAmount / m.AccountSize
	}
	return p, nil
}

// SizeDefault sizes with a 2xATR stop.
func (m *Manager) SizeDefault(ticker string, price, atr float64) (Position, error) {
	return m.Size(ticker, price, atr, DefaultRiskMultiple)
}

// TakeProfit places the target rr stop distances above entry.
func (m *Manager) TakeProfit(entry, stop, rr float64) float64 {
	return TakeProfit(entry, stop, rr)
}

// AddPosition stores p under ticker, replacing any existing entry.
func (m *Manager) AddPosition(ticker string, p Position) {
	if m.positions == nil {
		m.positions = map[string]Position{}
	}
	if p.Ticker == "" {
		p.Ticker = ticker
	}
	if p.StopDistance == 0 && p.StopLoss < p.EntryPrice {
		p.StopDistance = p.EntryPrice - p.StopLoss
	}
	m.positions[ticker] = p
}

// RemovePosition drops ticker from the book and reports whether it was there.
func (m *Manager) RemovePosition(ticker string) bool {
	_, ok := m.positions[ticker]
	delete(m.positions, ticker)
	return ok
}

// Position returns the open position for ticker.
func (m *Manager) Position(ticker string) (Position, bool) {
	p, ok := m.positions[ticker]
	return p, ok
}

// Positions returns a copy of the book.
func (m *Manager) Positions() map[string]Position {
	out := make(map[string]Position, len(m.positions))
	for k, v := range m.positions {
		out[k] = v
	}
	return out
}

// Tickers returns the book's tickers in sorted order.
func (m *Manager) Tickers() []string {
	out := make([]string, 0, len(m.positions))
	for k := range m.positions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PortfolioRisk sums value and risk across the book.
func (m *Manager) PortfolioRisk() PortfolioRisk {
	var pr PortfolioRisk
	for _, p := range m.positions {
		pr.TotalValue += p.DollarAmount
		pr.TotalRiskAmount += p.RiskAmount
		pr.PositionCount++
	}
	if m.AccountSize > 0 {
		pr.TotalRiskPct = pr.TotalRiskAmount / m.AccountSize
	}
	return pr
}

// AdjustPositionSizes scales every position down proportionally so total
// risk is at most maxPortfolioRiskPct. Positions that round to zero shares
// are dropped. The book is replaced and a copy returned; when the book is
// already within the cap it is returned unchanged.
func (m *Manager) AdjustPositionSizes(maxPortfolioRiskPct float64) map[string]Position {
	pr := m.PortfolioRisk()
	if pr.TotalRiskPct <= maxPortfolioRiskPct {
		return m.Positions()
	}

	factor := maxPortfolioRiskPct / pr.TotalRiskPct
	next := make(map[string]Position, len(m.positions))
	for t, p := range m.positions {
		shares := int(math.Floor(float64(p.Shares) * factor))
		if shares <= 0 {
			continue
		}
		p.Shares = shares
		p.DollarAmount = float64(shares) * p.EntryPrice
		p.RiskAmount = float64(shares) * math.Max(0, p.EntryPrice-p.StopLoss)
		if m.AccountSize > 0 {
			p.RiskPct = p.RiskAmount / m.AccountSize
		}
		next[t] = p
	}
	m.positions = next
	return m.Positions()
}

// TrailingStop ratchets the stop of ticker once price is above entry. The
// candidate is price minus the larger of the original stop distance and
// atrMultiple half-distances; it is applied only when strictly above the
// current stop. The resulting stop is returned either way.
func (m *Manager) TrailingStop(ticker string, price, atrMultiple float64) (float64, error) {
	p, ok := m.positions[ticker]
	if !ok {
		return 0, errs.New(errs.ErrInvalidOrder, "risk.trailing_stop", ticker, ErrNoPosition)
	}
	if price <= p.EntryPrice {
		return p.StopLoss, nil
	}

	d := p.StopDistance
	if d <= 0 {
		d = p.EntryPrice - p.StopLoss
	}
	if d <= 0 {
		return p.StopLoss, nil
	}

	candidate := price - math.Max(d, atrMultiple*d/2)
	if candidate > p.StopLoss {
		p.StopLoss = candidate
		p.RiskAmount = float64(p.Shares) * math.Max(0, p.EntryPrice-p.StopLoss)
		if m.AccountSize > 0 {
			p.RiskPct = p.RiskAmount / m.AccountSize
		}
		m.positions[ticker] = p
	}
	return p.StopLoss, nil
}
