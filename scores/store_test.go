package scores

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/screener/market"
)

func sampleTable() ScoreTable {
	return ScoreTable{
		Universe:   "sp500",
		ComputedAt: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC),
		Rows: map[string]ScoreRow{
			"AAPL": {Symbol: "AAPL", Score: 8, Close: 190.5, ATR: 3.2, Detail: map[string]any{"leverage": 2.0}},
			"MSFT": {Symbol: "MSFT", Score: 7, Close: 410, ATR: 6.1},
		},
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreTables(t *testing.T) {
	t.Parallel()

	s := newTestSQLiteStore(t)
	written := time.Date(2024, 6, 3, 12, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return written }
	ctx := context.Background()

	_, ok, err := s.LoadTable(ctx, "sp500")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveTable(ctx, sampleTable()))
	e, ok, err := s.LoadTable(ctx, "sp500")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.WrittenAt.Equal(written), "written_at %s", e.WrittenAt)
	assert.Equal(t, sampleTable().Rows, e.Table.Rows)
	assert.True(t, e.Table.ComputedAt.Equal(sampleTable().ComputedAt))

	// upsert replaces the payload and timestamp
	later := written.Add(time.Hour)
	s.now = func() time.Time { return later }
	updated := sampleTable()
	delete(updated.Rows, "MSFT")
	require.NoError(t, s.SaveTable(ctx, updated))

	e, ok, err = s.LoadTable(ctx, "sp500")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, e.Table.Len())
	assert.True(t, e.WrittenAt.Equal(later))
}

func TestSQLiteStoreScores(t *testing.T) {
	t.Parallel()

	s := newTestSQLiteStore(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	sc := market.Score{
		Symbol: "AAPL",
		Date:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Value:  8,
		Detail: map[string]any{"profitability": 4.0},
	}

	_, ok, err := s.LoadScore(ctx, "AAPL", day)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveScore(ctx, day, sc))

	got, ok, err := s.LoadScore(ctx, "AAPL", day.Add(-10*time.Hour))
	require.NoError(t, err)
	require.True(t, ok, "same calendar day must hit")
	assert.Equal(t, sc.Value, got.Value)
	assert.Equal(t, sc.Detail, got.Detail)
	assert.True(t, got.Date.Equal(sc.Date))

	_, ok, err = s.LoadScore(ctx, "AAPL", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreWithCache(t *testing.T) {
	t.Parallel()

	d := newFakeData()
	d.scores["AAA"] = 9
	d.bars["AAA"] = 20
	clk := &clock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	s := newTestSQLiteStore(t)
	s.now = clk.Now
	var diags []Diagnostic
	c := newTestCache(s, fakeUniverse{"u": {"AAA"}}, d, clk, &diags)

	_, err := c.GetScores(context.Background(), "u")
	require.NoError(t, err)
	clk.Add(time.Hour)
	table, err := c.GetScores(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 1, d.historyHits)
	assert.Equal(t, 9.0, table.Rows["AAA"].Score)
	assert.Empty(t, diags)
}

func newTestRedisStore(t *testing.T) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, RedisOptions{})
	s.now = func() time.Time { return time.Date(2024, 6, 3, 12, 30, 0, 0, time.UTC) }
	return s, mock
}

func TestRedisStoreTables(t *testing.T) {
	t.Parallel()

	s, mock := newTestRedisStore(t)
	ctx := context.Background()
	key := "screener:table:sp500"

	mock.ExpectGet(key).RedisNil()
	_, ok, err := s.LoadTable(ctx, "sp500")
	require.NoError(t, err)
	assert.False(t, ok)

	payload, err := json.Marshal(Entry{Table: sampleTable(), WrittenAt: s.now().UTC()})
	require.NoError(t, err)
	mock.ExpectSet(key, payload, 48*time.Hour).SetVal("OK")
	require.NoError(t, s.SaveTable(ctx, sampleTable()))

	mock.ExpectGet(key).SetVal(string(payload))
	e, ok, err := s.LoadTable(ctx, "sp500")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTable().Rows, e.Table.Rows)
	assert.True(t, e.WrittenAt.Equal(s.now()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreScores(t *testing.T) {
	t.Parallel()

	s, mock := newTestRedisStore(t)
	ctx := context.Background()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sc := market.Score{Symbol: "AAPL", Date: day, Value: 7}
	key := "screener:score:AAPL:2024-06-03"

	payload, err := json.Marshal(sc)
	require.NoError(t, err)
	mock.ExpectSet(key, payload, 72*time.Hour).SetVal("OK")
	require.NoError(t, s.SaveScore(ctx, day, sc))

	mock.ExpectGet(key).SetVal(string(payload))
	got, ok, err := s.LoadScore(ctx, "AAPL", day.Add(5*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7.0, got.Value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreErrors(t *testing.T) {
	t.Parallel()

	s, mock := newTestRedisStore(t)
	ctx := context.Background()
	boom := errors.New("connection refused")

	mock.ExpectGet("screener:table:sp500").SetErr(boom)
	_, ok, err := s.LoadTable(ctx, "sp500")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	mock.ExpectGet("screener:table:sp500").SetVal("{not json")
	_, ok, err = s.LoadTable(ctx, "sp500")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "failed to decode")

	assert.NoError(t, mock.ExpectationsWereMet())
}
