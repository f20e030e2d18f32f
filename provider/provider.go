// Package provider defines the external data sources the screener consumes
// (universe lists, daily price history, quality scores) and file-backed,
// synthetic and guarded implementations of them.
package provider

import (
	"context"
	"time"

	"github.com/rustyeddy/screener/market"
)

// Universe lists the symbols that belong to a named universe.
type Universe interface {
	ListSymbols(ctx context.Context, name string) ([]string, error)
}

// PriceHistory returns daily bars for symbol within [start, end]. A zero
// start or end leaves that side open.
type PriceHistory interface {
	History(ctx context.Context, symbol string, start, end time.Time) (market.Series, error)
}

// Scorer returns the fundamental quality score of a symbol.
type Scorer interface {
	Score(ctx context.Context, symbol string) (market.Score, error)
}

// ScoreHistory returns the dated scores recorded for a symbol, oldest first.
// An empty result means only the current score is known.
type ScoreHistory interface {
	ScoreHistory(ctx context.Context, symbol string) ([]market.Score, error)
}

// Batches splits symbols into consecutive groups of at most size. A size
// below 1 yields a single batch.
func Batches(symbols []string, size int) [][]string {
	if len(symbols) == 0 {
		return nil
	}
	if size < 1 {
		size = len(symbols)
	}
	out := make([][]string, 0, (len(symbols)+size-1)/size)
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}
