package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the dollar loss if the stop is hit.
func PlannedRisk(shares, entry, stop float64) float64 {
	return shares * abs(entry-stop)
}

// RR is reward over risk for a bracket. It is 0 when entry equals stop.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is risk as a fraction of equity; +Inf when equity is not positive.
func RiskPct(risk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return risk / equity
}

// TakeProfit places the target rr times the stop distance above entry.
func TakeProfit(entry, stop, rr float64) float64 {
	return entry + (entry-stop)*rr
}

// DollarSize is the simplified dollar allocation: the account risk budget
// spread over a fixed 2xATR stop, scaled by price. Returns 0 when atr is 0.
//
//	DollarSize(100, 2, 10_000, 0.01) == 2500
func DollarSize(price, atr, accountSize, riskPct float64) float64 {
	if atr == 0 {
		return 0
	}
	return (accountSize * riskPct) / (2 * atr) * price
}
