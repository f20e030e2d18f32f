package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// ReadCSV parses daily bars in date,open,high,low,close[,volume] order. A
// header row is optional. Dates may be 2006-01-02 or RFC3339.
func ReadCSV(r io.Reader, symbol string) (Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	s := Series{Symbol: symbol}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return Series{}, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		b, err := parseRow(row)
		if err != nil {
			return Series{}, fmt.Errorf("%s line %d: %w", symbol, line, err)
		}
		b.Symbol = symbol
		s.Bars = append(s.Bars, b)
	}
}

func parseRow(row []string) (PriceBar, error) {
	if len(row) < 5 {
		return PriceBar{}, fmt.Errorf("need at least 5 columns (date,open,high,low,close), got %d", len(row))
	}

	d, err := parseDate(strings.TrimSpace(row[0]))
	if err != nil {
		return PriceBar{}, err
	}

	var vals [5]float64
	n := len(row)
	if n > 6 {
		n = 6
	}
	for i := 1; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return PriceBar{}, fmt.Errorf("bad %s %q: %w", csvHeader[i], row[i], err)
		}
		vals[i-1] = v
	}

	return PriceBar{
		Date:   d,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t.UTC(), nil
}

// WriteCSV writes s with a header row in the format ReadCSV accepts.
func WriteCSV(w io.Writer, s Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range s.Bars {
		if err := cw.Write([]string{
			b.Date.Format("2006-01-02"),
			f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
