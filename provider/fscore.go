package provider

// The nine boolean checks summed into a 0..9 quality score, grouped by
// component.
var (
	ProfitabilityChecks = []string{
		"positive_net_income",
		"positive_operating_cashflow",
		"higher_roa",
		"cashflow_greater_than_income",
	}
	LeverageChecks = []string{
		"lower_leverage_ratio",
		"higher_current_ratio",
		"no_dilution",
	}
	EfficiencyChecks = []string{
		"higher_gross_margin",
		"higher_asset_turnover",
	}
)

// FScore sums the nine checks and returns the score with a detail breakdown
// (per-component subtotals plus the raw checks). Unknown keys are ignored.
func FScore(checks map[string]bool) (float64, map[string]any) {
	count := func(names []string) int {
		n := 0
		for _, k := range names {
			if checks[k] {
				n++
			}
		}
		return n
	}

	prof := count(ProfitabilityChecks)
	lev := count(LeverageChecks)
	eff := count(EfficiencyChecks)

	raw := map[string]any{}
	for _, group := range [][]string{ProfitabilityChecks, LeverageChecks, EfficiencyChecks} {
		for _, k := range group {
			raw[k] = checks[k]
		}
	}

	return float64(prof + lev + eff), map[string]any{
		"profitability":        prof,
		"leverage":             lev,
		"operating_efficiency": eff,
		"checks":               raw,
	}
}
