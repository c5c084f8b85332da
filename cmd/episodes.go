package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/navsim/internal/config"
	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/observability"
	"github.com/xkilldash9x/navsim/internal/reporting"
	"github.com/xkilldash9x/navsim/internal/store"
)

// episodeStore is what the CLI needs from persistence.
type episodeStore interface {
	engine.Store
	ListEpisodes(ctx context.Context, policy navigation.Kind, limit int) ([]engine.EpisodeResult, error)
}

// storeProvider creates the episode store, so tests can inject a mock
// instead of a live database connection.
type storeProvider interface {
	// Create returns the store, a cleanup function that releases its
	// resources, and an error if the store could not be opened.
	Create(ctx context.Context, cfg config.Interface) (episodeStore, func(), error)
}

type defaultStoreProvider struct{}

func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to PostgreSQL and makes sure the episodes table exists.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (episodeStore, func(), error) {
	db := cfg.Database()
	if db.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (NAVSIM_DATABASE_URL)")
	}
	pool, err := store.Connect(ctx, db.URL, db.ConnectTimeout)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(ctx, pool, observability.GetLogger())
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func newEpisodesCmd(provider storeProvider) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "List persisted episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			var kind navigation.Kind
			if p, _ := cmd.Flags().GetString("policy"); p != "" {
				if kind, err = navigation.ParseKind(p); err != nil {
					return err
				}
			}
			limit, _ := cmd.Flags().GetInt("limit")

			s, cleanup, err := provider.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open episode store: %w", err)
			}
			defer cleanup()

			queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			episodes, err := s.ListEpisodes(queryCtx, kind, limit)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			rep, err := reporting.NewForWriter(format, cmd.OutOrStdout(), Version)
			if err != nil {
				return err
			}
			for i := range episodes {
				if err := rep.Write(&episodes[i]); err != nil {
					_ = rep.Close()
					return err
				}
			}
			return rep.Close()
		},
	}
	episodesCmd.Flags().StringP("policy", "p", "", "only list this policy")
	episodesCmd.Flags().Int("limit", 50, "maximum number of episodes")
	episodesCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	return episodesCmd
}
