package provider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/market"
)

// ScoreEntry is one symbol in a score file. When Checks is set and Value is
// zero the value is the number of passing checks. History holds earlier
// dated scores for backtests.
type ScoreEntry struct {
	Value   float64         `yaml:"value"`
	Date    string          `yaml:"date,omitempty"`
	Checks  map[string]bool `yaml:"checks,omitempty"`
	History []ScoreEntry    `yaml:"history,omitempty"`
}

// FileScorer serves scores loaded from a YAML file:
//
//	scores:
//	  AAPL: {value: 8}
//	  MSFT:
//	    checks: {positive_net_income: true, no_dilution: true}
//	  KO:
//	    value: 7
//	    date: 2024-06-03
//	    history:
//	      - {value: 5, date: 2021-03-01}
//	      - {value: 6, date: 2022-03-01}
type FileScorer struct {
	Entries map[string]ScoreEntry
	Now     func() time.Time
}

type scoreFile struct {
	Scores map[string]ScoreEntry `yaml:"scores"`
}

// LoadScoreFile reads a score file.
func LoadScoreFile(path string) (*FileScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read score file: %w", err)
	}
	var f scoreFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse score file: %w", err)
	}
	fs := &FileScorer{Entries: map[string]ScoreEntry{}, Now: time.Now}
	for sym, e := range f.Scores {
		fs.Entries[strings.ToUpper(sym)] = e
	}
	return fs, nil
}

func (f *FileScorer) Score(ctx context.Context, symbol string) (market.Score, error) {
	const op = "provider.file_score"
	if err := ctx.Err(); err != nil {
		return market.Score{}, err
	}
	sym := strings.ToUpper(symbol)
	e, ok := f.Entries[sym]
	if !ok {
		return market.Score{}, errs.Unavailable(op, sym, fmt.Errorf("no score"))
	}
	return e.score(op, sym, f.today())
}

func (f *FileScorer) today() time.Time {
	if f.Now != nil {
		return market.Day(f.Now())
	}
	return market.Day(time.Now())
}

// ScoreHistory returns the entry's history followed by its current score.
// Entries without history yield nothing. Undated history entries are an
// error.
func (f *FileScorer) ScoreHistory(ctx context.Context, symbol string) ([]market.Score, error) {
	const op = "provider.file_score_history"
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := strings.ToUpper(symbol)
	e, ok := f.Entries[sym]
	if !ok {
		return nil, errs.Unavailable(op, sym, fmt.Errorf("no score"))
	}

	out := make([]market.Score, 0, len(e.History)+1)
	for _, h := range e.History {
		if h.Date == "" {
			return nil, errs.Unavailable(op, sym, fmt.Errorf("history entry without date"))
		}
		s, err := h.score(op, sym, time.Time{})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) > 0 {
		s, err := e.score(op, sym, f.today())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (e ScoreEntry) score(op, sym string, day time.Time) (market.Score, error) {
	s := market.Score{Symbol: sym, Date: day, Value: e.Value}
	if e.Date != "" {
		d, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return market.Score{}, errs.Unavailable(op, sym, fmt.Errorf("bad date %q", e.Date))
		}
		s.Date = d
	}
	if len(e.Checks) > 0 {
		v, detail := FScore(e.Checks)
		if s.Value == 0 {
			s.Value = v
		}
		s.Detail = detail
	}
	return s, nil
}
