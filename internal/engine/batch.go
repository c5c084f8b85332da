package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EpisodeSpec identifies one episode of a batch.
type EpisodeSpec struct {
	Index int
	Seed  int64
}

// Factory builds a fresh engine for an episode. It is called from worker
// goroutines and must not share mutable state between calls.
type Factory func(spec EpisodeSpec) (*Engine, error)

// EpisodeResult is a Result tagged with its batch identity.
type EpisodeResult struct {
	ID    uuid.UUID `json:"id"`
	Index int       `json:"index"`
	Seed  int64     `json:"seed"`
	Result
	FinishedAt time.Time `json:"finished_at"`
}

// Store persists finished episodes.
type Store interface {
	SaveEpisodes(ctx context.Context, results []EpisodeResult) error
}

// BatchConfig controls RunBatch.
type BatchConfig struct {
	Episodes    int
	Concurrency int
	// BaseSeed seeds episode i with BaseSeed+i.
	BaseSeed int64
	// KeepTraces retains each episode's path trace in its result.
	KeepTraces bool
	// Store, when set, receives the finished episodes once the batch is done.
	Store Store
}

const persistTimeout = 30 * time.Second

// RunBatch runs the episodes concurrently, at most Concurrency at a time.
// Results come back in episode order. A factory error aborts the batch;
// cancellation ends running episodes with OutcomeCanceled and skips the rest.
func RunBatch(ctx context.Context, cfg BatchConfig, factory Factory, logger *zap.Logger) ([]EpisodeResult, error) {
	if factory == nil {
		return nil, errors.New("factory cannot be nil")
	}
	if cfg.Episodes < 0 {
		return nil, fmt.Errorf("%w: episodes must be non-negative", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("batch")

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	logger.Info("Starting batch", zap.Int("episodes", cfg.Episodes), zap.Int("concurrency", concurrency))

	results := make([]EpisodeResult, cfg.Episodes)
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := 0; i < cfg.Episodes; i++ {
		if groupCtx.Err() != nil {
			break
		}
		spec := EpisodeSpec{Index: i, Seed: cfg.BaseSeed + int64(i)}
		g.Go(func() error {
			eng, err := factory(spec)
			if err != nil {
				return fmt.Errorf("episode %d: %w", spec.Index, err)
			}
			res := eng.Run(groupCtx, nil)
			if !cfg.KeepTraces {
				res.Trace = nil
			}
			results[spec.Index] = EpisodeResult{
				ID:         uuid.New(),
				Index:      spec.Index,
				Seed:       spec.Seed,
				Result:     res,
				FinishedAt: time.Now().UTC(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Episodes skipped by cancellation leave zero entries behind.
	out := results[:0]
	for _, r := range results {
		if r.ID != uuid.Nil {
			out = append(out, r)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Batch interrupted", zap.Int("completed", len(out)), zap.Error(ctx.Err()))
	} else {
		logger.Info("Batch finished", zap.Int("completed", len(out)))
	}

	if cfg.Store != nil && len(out) > 0 {
		// Persist even when the batch was interrupted, so use a fresh context.
		persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := cfg.Store.SaveEpisodes(persistCtx, out); err != nil {
			return out, fmt.Errorf("failed to persist batch results: %w", err)
		}
		logger.Info("Persisted batch results", zap.Int("episodes", len(out)))
	}
	return out, nil
}
