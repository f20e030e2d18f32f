package risk

import "time"

// Policy holds the limits a trade intent is checked against before it is
// sent to a broker.
type Policy struct {
	MaxRiskPct          float64 // per trade, 0.01
	MaxPositionPct      float64 // position value, 0.05
	MaxPortfolioRiskPct float64 // whole book, 0.03
	MaxOpenTrades       int     // 10
	MinRR               float64 // 1.5
}

// DefaultPolicy matches the risk manager defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRiskPct:          0.01,
		MaxPositionPct:      0.05,
		MaxPortfolioRiskPct: 0.03,
		MaxOpenTrades:       10,
		MinRR:               1.5,
	}
}

// TradeIntent is a proposed long bracket.
type TradeIntent struct {
	Now    time.Time
	Ticker string
	Shares int

	Entry      float64
	Stop       float64
	TakeProfit float64
}

// IntentFor builds an intent from a sized position.
func IntentFor(p Position, now time.Time) TradeIntent {
	return TradeIntent{
		Now:        now,
		Ticker:     p.Ticker,
		Shares:     p.Shares,
		Entry:      p.EntryPrice,
		Stop:       p.StopLoss,
		TakeProfit: p.TakeProfit,
	}
}
