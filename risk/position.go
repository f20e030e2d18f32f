package risk

import "math"

// Inputs describes one long entry to be sized against an account.
type Inputs struct {
	Equity      float64
	RiskPct     float64 // 0.01
	EntryPrice  float64
	StopPrice   float64
	PositionCap float64 // max position value as a fraction of equity, 0 disables
}

// Result is the share count Calculate settled on.
type Result struct {
	Shares       int
	RiskPerShare float64
	RiskAmount   float64
	DollarAmount float64
	Capped       bool // the position cap reduced the share count
}

// Calculate sizes a long position so a stop-out loses at most
// Equity*RiskPct, then trims it to the position cap. A stop at or above
// entry yields zero shares.
func Calculate(in Inputs) Result {
	rps := in.EntryPrice - in.StopPrice
	maxRisk := in.Equity * in.RiskPct

	shares := 0.0
	if rps > 0 && maxRisk > 0 {
		shares = math.Floor(maxRisk / rps)
	}

	r := Result{RiskPerShare: rps}
	if limit := in.Equity * in.PositionCap; in.PositionCap > 0 && shares*in.EntryPrice > limit {
		shares = math.Max(0, math.Floor(limit/in.EntryPrice))
		r.Capped = true
	}

	r.Shares = int(shares)
	r.DollarAmount = shares * in.EntryPrice
	if rps > 0 {
		r.RiskAmount = shares * rps
	}
	return r
}
