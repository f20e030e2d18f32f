package scores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/screener/market"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS score_tables (
	universe TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	written_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS symbol_scores (
	symbol TEXT NOT NULL,
	day TEXT NOT NULL,
	score REAL NOT NULL,
	as_of DATETIME NOT NULL,
	detail_json TEXT NOT NULL,
	PRIMARY KEY (symbol, day)
);
`

// SQLiteStore keeps score tables as JSON payloads in a SQLite file.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

type tableRow struct {
	Universe  string    `db:"universe"`
	Payload   string    `db:"payload"`
	WrittenAt time.Time `db:"written_at"`
}

type scoreRow struct {
	Symbol     string    `db:"symbol"`
	Day        string    `db:"day"`
	Score      float64   `db:"score"`
	AsOf       time.Time `db:"as_of"`
	DetailJSON string    `db:"detail_json"`
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create score schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) LoadTable(ctx context.Context, universe string) (Entry, bool, error) {
	var row tableRow
	err := s.db.GetContext(ctx, &row, `
		SELECT universe, payload, written_at
		FROM score_tables
		WHERE universe = ?`, universe)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load score table %q: %w", universe, err)
	}

	var t ScoreTable
	if err := json.Unmarshal([]byte(row.Payload), &t); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode score table %q: %w", universe, err)
	}
	return Entry{Table: t, WrittenAt: row.WrittenAt}, true, nil
}

func (s *SQLiteStore) SaveTable(ctx context.Context, t ScoreTable) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode score table: %w", err)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO score_tables (universe, payload, written_at)
		VALUES (:universe, :payload, :written_at)
		ON CONFLICT (universe) DO UPDATE SET
			payload = excluded.payload,
			written_at = excluded.written_at`,
		tableRow{Universe: t.Universe, Payload: string(payload), WrittenAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to save score table %q: %w", t.Universe, err)
	}
	return nil
}

func (s *SQLiteStore) LoadScore(ctx context.Context, symbol string, day time.Time) (market.Score, bool, error) {
	var row scoreRow
	err := s.db.GetContext(ctx, &row, `
		SELECT symbol, day, score, as_of, detail_json
		FROM symbol_scores
		WHERE symbol = ? AND day = ?`, symbol, dayKey(day))
	if errors.Is(err, sql.ErrNoRows) {
		return market.Score{}, false, nil
	}
	if err != nil {
		return market.Score{}, false, fmt.Errorf("failed to load score %s: %w", symbol, err)
	}

	sc := market.Score{Symbol: row.Symbol, Date: row.AsOf.UTC(), Value: row.Score}
	if row.DetailJSON != "" && row.DetailJSON != "null" {
		if err := json.Unmarshal([]byte(row.DetailJSON), &sc.Detail); err != nil {
			return market.Score{}, false, fmt.Errorf("failed to decode score detail %s: %w", symbol, err)
		}
	}
	return sc, true, nil
}

func (s *SQLiteStore) SaveScore(ctx context.Context, day time.Time, sc market.Score) error {
	detail, err := json.Marshal(sc.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode score detail: %w", err)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO symbol_scores (symbol, day, score, as_of, detail_json)
		VALUES (:symbol, :day, :score, :as_of, :detail_json)
		ON CONFLICT (symbol, day) DO UPDATE SET
			score = excluded.score,
			as_of = excluded.as_of,
			detail_json = excluded.detail_json`,
		scoreRow{Symbol: sc.Symbol, Day: dayKey(day), Score: sc.Value, AsOf: sc.Date.UTC(), DetailJSON: string(detail)})
	if err != nil {
		return fmt.Errorf("failed to save score %s: %w", sc.Symbol, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
