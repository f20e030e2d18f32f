package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Has reports whether the decision carries a violation with code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Evaluate checks a trade intent against policy, the account size and the
// current book. Every failed rule is reported, not just the first.
func Evaluate(p Policy, intent TradeIntent, accountSize float64, book PortfolioRisk) Decision {
	d := Decision{Allowed: true}

	// Basic sanity
	if intent.Stop <= 0 || intent.Entry <= 0 {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	if intent.Shares <= 0 {
		d.add("NO_SHARES", "shares must be positive")
		return d
	}
	if intent.Stop >= intent.Entry {
		d.add("STOP_ABOVE_ENTRY",
			fmt.Sprintf("stop %.2f must sit below entry %.2f", intent.Stop, intent.Entry))
		return d
	}

	d.PlannedRisk = PlannedRisk(float64(intent.Shares), intent.Entry, intent.Stop)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, accountSize)
	d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)

	if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}
	if intent.TakeProfit > 0 && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}

	// Exposure constraints
	if p.MaxOpenTrades > 0 && book.PositionCount >= p.MaxOpenTrades {
		d.add("TOO_MANY_OPEN_TRADES",
			fmt.Sprintf("open trades %d >= max %d", book.PositionCount, p.MaxOpenTrades))
	}
	if p.MaxPositionPct > 0 && accountSize > 0 {
		value := float64(intent.Shares) * intent.Entry
		if value > accountSize*p.MaxPositionPct {
			d.add("POSITION_TOO_LARGE",
				fmt.Sprintf("position value %.2f exceeds %.2f%% of account",
					value, 100*p.MaxPositionPct))
		}
	}
	if p.MaxPortfolioRiskPct > 0 {
		after := RiskPct(book.TotalRiskAmount+d.PlannedRisk, accountSize)
		if after > p.MaxPortfolioRiskPct {
			d.add("PORTFOLIO_RISK_TOO_HIGH",
				fmt.Sprintf("portfolio risk would be %.2f%%, max %.2f%%",
					100*after, 100*p.MaxPortfolioRiskPct))
		}
	}

	return d
}
