package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/market"
)

// window is a fixed-size rolling sum. Non-finite values are counted in bad
// rather than summed, so the mean is NaN only while one is inside the window.
type window struct {
	vals []float64
	next int
	n    int
	bad  int
	sum  float64
}

func newWindow(size int) window {
	return window{vals: make([]float64, size)}
}

func (w *window) push(v float64) {
	if w.n == len(w.vals) {
		w.drop(w.vals[w.next])
	} else {
		w.n++
	}
	w.vals[w.next] = v
	if finite(v) {
		w.sum += v
	} else {
		w.bad++
	}
	w.next = (w.next + 1) % len(w.vals)
	if w.bad == 0 && w.next == 0 {
		w.resum()
	}
}

func (w *window) drop(v float64) {
	if finite(v) {
		w.sum -= v
	} else {
		w.bad--
	}
}

// resum recomputes the sum once per lap to shed rounding drift.
func (w *window) resum() {
	w.sum = 0
	for _, v := range w.vals[:w.n] {
		w.sum += v
	}
}

func (w *window) full() bool { return w.n == len(w.vals) }

func (w *window) mean() float64 {
	if !w.full() || w.bad > 0 {
		return math.NaN()
	}
	return w.sum / float64(w.n)
}

func (w *window) reset() {
	for i := range w.vals {
		w.vals[i] = 0
	}
	w.next, w.n, w.bad, w.sum = 0, 0, 0, 0
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// SimpleMA is a streaming Simple Moving Average of closes.
type SimpleMA struct {
	period int
	w      window
}

// NewMA creates a new Simple Moving Average indicator with the given period.
func NewMA(period int) *SimpleMA {
	if period <= 0 {
		period = 1
	}
	return &SimpleMA{period: period, w: newWindow(period)}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }
func (m *SimpleMA) Warmup() int { return m.period }
func (m *SimpleMA) Reset() { m.w.reset() }
func (m *SimpleMA) Update(b market.PriceBar) { m.w.push(b.Close) }
func (m *SimpleMA) Ready() bool { return m.w.full() }
func (m *SimpleMA) Value() float64 { return m.w.mean() }

// ATR is a streaming Average True Range: the plain mean of the last period
// true ranges. The first bar contributes high-low since it has no prior close.
type ATR struct {
	period    int
	w         window
	prevClose float64
}

// NewATR creates a new Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	if period <= 0 {
		period = 1
	}
	return &ATR{period: period, w: newWindow(period), prevClose: math.NaN()}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }
func (a *ATR) Warmup() int { return a.period }

func (a *ATR) Reset() {
	a.w.reset()
	a.prevClose = math.NaN()
}

func (a *ATR) Update(b market.PriceBar) {
	a.w.push(market.TrueRange(b, a.prevClose))
	a.prevClose = b.Close
}

func (a *ATR) Ready() bool { return a.w.full() }
func (a *ATR) Value() float64 { return a.w.mean() }
