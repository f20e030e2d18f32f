package indicators

import (
	"fmt"
)

// MA calculates the Simple Moving Average of the last period closes.
// Returns an error if there aren't enough closes for the period.
func MA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, fmt.Errorf("not enough closes: need %d, got %d", period, len(closes))
	}

	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling simple average of closes, aligned with the
// input. Entries before the period-th close are NaN, as is any entry whose
// window holds a NaN or infinite close.
func SMASeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	out := make([]float64, len(closes))
	w := newWindow(period)
	for i, c := range closes {
		w.push(c)
		out[i] = w.mean()
	}
	return out, nil
}
