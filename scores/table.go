// Package scores caches per-universe score tables: the quality score, last
// close and ATR of every symbol in a universe.
package scores

import (
	"sort"
	"time"
)

// ScoreRow is one symbol of a score table. Rows with a missing field never
// make it into a table.
type ScoreRow struct {
	Symbol string         `json:"symbol"`
	Score  float64        `json:"score"`
	Close  float64        `json:"close"`
	ATR    float64        `json:"atr"`
	Detail map[string]any `json:"detail,omitempty"`
}

// ScoreTable is the cached result of scoring one universe.
type ScoreTable struct {
	Universe   string              `json:"universe"`
	ComputedAt time.Time           `json:"computed_at"`
	Rows       map[string]ScoreRow `json:"rows"`
}

func (t ScoreTable) Len() int { return len(t.Rows) }

// Symbols returns the table's symbols in alphabetical order.
func (t ScoreTable) Symbols() []string {
	out := make([]string, 0, len(t.Rows))
	for s := range t.Rows {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Filter selects candidate rows. Zero bounds are ignored.
type Filter struct {
	MinScore float64
	MinPrice float64
	MaxPrice float64
	Limit    int
}

// Select returns the rows passing f ordered by score (highest first), then
// symbol.
func (t ScoreTable) Select(f Filter) []ScoreRow {
	var out []ScoreRow
	for _, r := range t.Rows {
		if r.Score < f.MinScore {
			continue
		}
		if f.MinPrice > 0 && r.Close < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && r.Close > f.MaxPrice {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
