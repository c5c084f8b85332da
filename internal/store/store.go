package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS episodes (
    id UUID PRIMARY KEY,
    episode_index INTEGER NOT NULL,
    seed BIGINT NOT NULL,
    policy TEXT NOT NULL,
    outcome TEXT NOT NULL,
    steps INTEGER NOT NULL,
    collisions INTEGER NOT NULL,
    path_length DOUBLE PRECISION NOT NULL,
    final_distance DOUBLE PRECISION NOT NULL,
    escapes INTEGER NOT NULL,
    duration_ms BIGINT NOT NULL,
    trace JSONB NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);`

var episodeColumns = []string{
	"id", "episode_index", "seed", "policy", "outcome", "steps", "collisions",
	"path_length", "final_distance", "escapes", "duration_ms", "trace", "finished_at",
}

// Store persists episode results in PostgreSQL. It satisfies engine.Store.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ engine.Store = (*Store)(nil)

// Connect opens a pgx pool for url and waits at most timeout for the first connection.
func Connect(ctx context.Context, url string, timeout time.Duration) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, errors.New("database url is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if timeout > 0 {
		cfg.ConnConfig.ConnectTimeout = timeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the episodes table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create episodes table: %w", err)
	}
	return nil
}

// SaveEpisodes writes all results in one transaction.
func (s *Store) SaveEpisodes(ctx context.Context, results []engine.EpisodeResult) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([][]any, len(results))
	for i, r := range results {
		trace, err := encodeTrace(r.Trace)
		if err != nil {
			return fmt.Errorf("episode %d: %w", r.Index, err)
		}
		rows[i] = []any{
			r.ID, r.Index, r.Seed, string(r.Policy), string(r.Outcome),
			r.Steps, r.Collisions, r.PathLength, r.FinalDistance, r.Escapes,
			r.Duration.Milliseconds(), trace, r.FinishedAt.UTC(),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit reports ErrTxClosed; that is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"episodes"}, episodeColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy episodes: %w", err)
	}
	if int(copyCount) != len(results) {
		return fmt.Errorf("mismatch in copied episodes count: expected %d, got %d", len(results), copyCount)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Saved episodes", zap.Int("count", len(results)))
	return nil
}

// ListEpisodes returns the most recent episodes, newest first, optionally
// restricted to one policy. limit <= 0 means 100.
func (s *Store) ListEpisodes(ctx context.Context, policy navigation.Kind, limit int) ([]engine.EpisodeResult, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
        SELECT id, episode_index, seed, policy, outcome, steps, collisions,
               path_length, final_distance, escapes, duration_ms, trace, finished_at
        FROM episodes
        WHERE ($1 = '' OR policy = $1)
        ORDER BY finished_at DESC
        LIMIT $2;
    `
	rows, err := s.pool.Query(ctx, query, string(policy), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var out []engine.EpisodeResult
	for rows.Next() {
		var (
			r             engine.EpisodeResult
			id            string
			kind, outcome string
			durationMs    int64
			trace         []byte
		)
		if err := rows.Scan(
			&id, &r.Index, &r.Seed, &kind, &outcome, &r.Steps, &r.Collisions,
			&r.PathLength, &r.FinalDistance, &r.Escapes, &durationMs, &trace, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan episode row: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("episode row has an invalid id %q: %w", id, err)
		}
		r.Policy = navigation.Kind(kind)
		r.Outcome = engine.Outcome(outcome)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(trace, &r.Trace); err != nil {
			return nil, fmt.Errorf("episode %s has an unreadable trace: %w", id, err)
		}
		if len(r.Trace) == 0 {
			r.Trace = nil
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

func encodeTrace(trace []geometry.Vector2D) ([]byte, error) {
	if len(trace) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trace: %w", err)
	}
	return b, nil
}
