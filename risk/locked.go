package risk

import "sync"

// Locked serialises access to a shared Manager.
type Locked struct {
	mu sync.Mutex
	m  *Manager
}

func NewLocked(m *Manager) *Locked { return &Locked{m: m} }

func (l *Locked) Size(ticker string, price, atr, riskMultiple float64) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Size(ticker, price, atr, riskMultiple)
}

func (l *Locked) AddPosition(ticker string, p Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m.AddPosition(ticker, p)
}

func (l *Locked) RemovePosition(ticker string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.RemovePosition(ticker)
}

func (l *Locked) Positions() map[string]Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Positions()
}

func (l *Locked) PortfolioRisk() PortfolioRisk {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.PortfolioRisk()
}

func (l *Locked) AdjustPositionSizes(maxPortfolioRiskPct float64) map[string]Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.AdjustPositionSizes(maxPortfolioRiskPct)
}

func (l *Locked) TrailingStop(ticker string, price, atrMultiple float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.TrailingStop(ticker, price, atrMultiple)
}
