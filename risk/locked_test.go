package risk

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockedConcurrentUse(t *testing.T) {
	t.Parallel()

	l := NewLocked(NewManager(1_000_000, 0.01, 0.05))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticker := fmt.Sprintf("T%02d", i)
			p, err := l.Size(ticker, 100+float64(i), 2, 2)
			if err != nil {
				return
			}
			l.AddPosition(ticker, p)
			_, _ = l.TrailingStop(ticker, 150, 2)
			_ = l.PortfolioRisk()
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Positions(), 20)
	pr := l.PortfolioRisk()
	assert.Equal(t, 20, pr.PositionCount)

	l.AdjustPositionSizes(pr.TotalRiskPct / 2)
	assert.LessOrEqual(t, l.PortfolioRisk().TotalRiskPct, pr.TotalRiskPct/2+1e-12)

	require.True(t, l.RemovePosition("T00"))
	assert.Len(t, l.Positions(), 19)
}
