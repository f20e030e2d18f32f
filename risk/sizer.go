package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/errs"
)

// Sizer turns a price and ATR into a position. Two strategies exist and the
// host picks one; neither is treated as authoritative.
type Sizer interface {
	Name() string
	Size(ticker string, price, atr float64) (Position, error)
}

const (
	SizerCapped = "capped"
	SizerDollar = "dollar"
)

// CappedRiskSizer sizes through a Manager: risk budget per trade with a
// configurable ATR multiple, capped by position value.
type CappedRiskSizer struct {
	Manager      *Manager
	RiskMultiple float64 // 0 means 2
}

func (s CappedRiskSizer) Name() string { return SizerCapped }

func (s CappedRiskSizer) Size(ticker string, price, atr float64) (Position, error) {
	m := s.RiskMultiple
	if m == 0 {
		m = DefaultRiskMultiple
	}
	return s.Manager.Size(ticker, price, atr, m)
}

// DollarRiskSizer allocates DollarSize dollars and buys as many whole shares
// as that affords. The stop is fixed at 2xATR and no position cap applies.
type DollarRiskSizer struct {
	AccountSize float64
	RiskPct     float64 // 0 means 1%
}

func (s DollarRiskSizer) Name() string { return SizerDollar }

func (s DollarRiskSizer) Size(ticker string, price, atr float64) (Position, error) {
	const op = "risk.dollar_size"
	switch {
	case ticker == "":
		return Position{}, errs.Invalid(op, "empty ticker")
	case bad(price) || price <= 0:
		return Position{}, errs.Invalid(op, "%s: price must be positive, got %v", ticker, price)
	case bad(atr) || atr < 0:
		return Position{}, errs.Invalid(op, "%s: atr must be >= 0, got %v", ticker, atr)
	}
	rp := s.RiskPct
	if rp == 0 {
		rp = DefaultMaxRiskPct
	}

	dollars := DollarSize(price, atr, s.AccountSize, rp)
	shares := math.Max(0, math.Floor(dollars/price))
	stop := price - 2*atr

	p := Position{
		Ticker:       ticker,
		EntryPrice:   price,
		Shares:       int(shares),
		StopLoss:     stop,
		DollarAmount: shares * price,
		RiskAmount:   shares * 2 * atr,
		StopDistance: 2 * atr,
	}
	if s.AccountSize > 0 {
		p.RiskPct = p.RiskAmount / s.AccountSize
	}
	return p, nil
}

// NewSizer returns the named strategy. m supplies account size and risk
// limits for both.
func NewSizer(name string, m *Manager, riskMultiple float64) (Sizer, error) {
	switch name {
	case SizerCapped, "":
		return CappedRiskSizer{Manager: m, RiskMultiple: riskMultiple}, nil
	case SizerDollar:
		return DollarRiskSizer{AccountSize: m.AccountSize, RiskPct: m.MaxRiskPct}, nil
	default:
		return nil, fmt.Errorf("unknown sizer %q (want %q or %q)", name, SizerCapped, SizerDollar)
	}
}
