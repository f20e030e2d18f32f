package scores

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/screener/market"
)

// Entry is a stored table plus the time it was written.
type Entry struct {
	Table     ScoreTable `json:"table"`
	WrittenAt time.Time  `json:"written_at"`
}

// Store persists score tables by universe and individual scores by
// (symbol, day). Load methods report a miss with ok == false and a nil
// error.
type Store interface {
	LoadTable(ctx context.Context, universe string) (e Entry, ok bool, err error)
	SaveTable(ctx context.Context, t ScoreTable) error
	LoadScore(ctx context.Context, symbol string, day time.Time) (s market.Score, ok bool, err error)
	SaveScore(ctx context.Context, day time.Time, s market.Score) error
	Close() error
}

func dayKey(t time.Time) string {
	return market.Day(t).Format("2006-01-02")
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]Entry
	scores map[string]market.Score
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[string]Entry{},
		scores: map[string]market.Score{},
		now:    time.Now,
	}
}

func (m *MemoryStore) LoadTable(ctx context.Context, universe string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tables[universe]
	return e, ok, nil
}

func (m *MemoryStore) SaveTable(ctx context.Context, t ScoreTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Universe] = Entry{Table: t, WrittenAt: m.now()}
	return nil
}

func (m *MemoryStore) LoadScore(ctx context.Context, symbol string, day time.Time) (market.Score, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scores[symbol+"|"+dayKey(day)]
	return s, ok, nil
}

func (m *MemoryStore) SaveScore(ctx context.Context, day time.Time, s market.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[s.Symbol+"|"+dayKey(day)] = s
	return nil
}

func (m *MemoryStore) Close() error { return nil }
