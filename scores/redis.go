package scores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/screener/market"
)

// RedisStore keeps tables and scores as JSON values with a TTL.
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	tableTTL time.Duration
	scoreTTL time.Duration
	now      func() time.Time
}

// RedisOptions configures NewRedisStore. Zero values pick the defaults.
type RedisOptions struct {
	Prefix   string        // key prefix, default "screener:"
	TableTTL time.Duration // default 48h
	ScoreTTL time.Duration // default 72h
}

// NewRedisStore wraps client, which may be a *redis.Client or a mock.
func NewRedisStore(client redis.Cmdable, o RedisOptions) *RedisStore {
	s := &RedisStore{
		client:   client,
		prefix:   o.Prefix,
		tableTTL: o.TableTTL,
		scoreTTL: o.ScoreTTL,
		now:      time.Now,
	}
	if s.prefix == "" {
		s.prefix = "screener:"
	}
	if s.tableTTL <= 0 {
		s.tableTTL = 48 * time.Hour
	}
	if s.scoreTTL <= 0 {
		s.scoreTTL = 72 * time.Hour
	}
	return s
}

func (s *RedisStore) tableKey(universe string) string {
	return s.prefix + "table:" + universe
}

func (s *RedisStore) scoreKey(symbol string, day time.Time) string {
	return s.prefix + "score:" + symbol + ":" + dayKey(day)
}

func (s *RedisStore) LoadTable(ctx context.Context, universe string) (Entry, bool, error) {
	b, err := s.client.Get(ctx, s.tableKey(universe)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load score table %q: %w", universe, err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode score table %q: %w", universe, err)
	}
	return e, true, nil
}

func (s *RedisStore) SaveTable(ctx context.Context, t ScoreTable) error {
	b, err := json.Marshal(Entry{Table: t, WrittenAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode score table: %w", err)
	}
	if err := s.client.Set(ctx, s.tableKey(t.Universe), b, s.tableTTL).Err(); err != nil {
		return fmt.Errorf("failed to save score table %q: %w", t.Universe, err)
	}
	return nil
}

func (s *RedisStore) LoadScore(ctx context.Context, symbol string, day time.Time) (market.Score, bool, error) {
	b, err := s.client.Get(ctx, s.scoreKey(symbol, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return market.Score{}, false, nil
	}
	if err != nil {
		return market.Score{}, false, fmt.Errorf("failed to load score %s: %w", symbol, err)
	}
	var sc market.Score
	if err := json.Unmarshal(b, &sc); err != nil {
		return market.Score{}, false, fmt.Errorf("failed to decode score %s: %w", symbol, err)
	}
	return sc, true, nil
}

func (s *RedisStore) SaveScore(ctx context.Context, day time.Time, sc market.Score) error {
	b, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}
	if err := s.client.Set(ctx, s.scoreKey(sc.Symbol, day), b, s.scoreTTL).Err(); err != nil {
		return fmt.Errorf("failed to save score %s: %w", sc.Symbol, err)
	}
	return nil
}

// Close closes the client when it owns a connection.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
