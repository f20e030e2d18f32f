package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/market"
)

// CSVHistory reads daily bars from <Dir>/<SYMBOL>.csv.
type CSVHistory struct {
	Dir string
}

func (c CSVHistory) path(symbol string) string {
	return filepath.Join(c.Dir, strings.ToUpper(symbol)+".csv")
}

func (c CSVHistory) History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error) {
	const op = "provider.csv_history"
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}

	f, err := os.Open(c.path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return market.Series{}, errs.Unavailable(op, symbol, fmt.Errorf("no price file %s", c.path(symbol)))
	}
	if err != nil {
		return market.Series{}, fmt.Errorf("%s: %w", symbol, err)
	}
	defer f.Close()

	s, err := market.ReadCSV(f, strings.ToUpper(symbol))
	if err != nil {
		return market.Series{}, errs.Unavailable(op, symbol, err)
	}
	s = s.Between(start, end)
	if err := s.Validate(); err != nil {
		return market.Series{}, errs.Unavailable(op, symbol, err)
	}
	return s, nil
}

// Symbols lists the symbols that have a price file in Dir.
func (c CSVHistory) Symbols() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(c.Dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	return out, nil
}
