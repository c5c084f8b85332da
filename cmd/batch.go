package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/observability"
	"github.com/xkilldash9x/navsim/internal/reporting"
)

func newBatchCmd() *cobra.Command {
	return newBatchCmdWithProvider(NewStoreProvider())
}

func newBatchCmdWithProvider(provider storeProvider) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run many seeded episodes concurrently and report per-policy statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("episodes") {
				n, _ := flags.GetInt("episodes")
				cfg.SetBatchEpisodes(n)
			}
			if flags.Changed("concurrency") {
				n, _ := flags.GetInt("concurrency")
				cfg.SetBatchConcurrency(n)
			}
			if err := applySimulationFlags(cmd, cfg); err != nil {
				return err
			}

			kinds := []navigation.Kind{}
			if all, _ := flags.GetBool("all-policies"); all {
				kinds = navigation.Kinds()
			} else {
				kind, err := navigation.ParseKind(cfg.Navigation().Policy)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}

			var persistTo episodeStore
			if persist, _ := flags.GetBool("persist"); persist {
				s, cleanup, err := provider.Create(ctx, cfg)
				if err != nil {
					return fmt.Errorf("failed to open episode store: %w", err)
				}
				defer cleanup()
				persistTo = s
			}

			output, _ := flags.GetString("output")
			format, _ := flags.GetString("format")
			var rep reporting.Reporter
			if output == "" {
				rep, err = reporting.NewForWriter(format, cmd.OutOrStdout(), Version)
			} else {
				rep, err = reporting.New(format, output, Version)
			}
			if err != nil {
				return err
			}

			keepTraces, _ := flags.GetBool("keep-traces")
			baseSeed := resolveSeed(cfg.Navigation().Seed)
			for _, kind := range kinds {
				cfg.SetNavigationPolicy(string(kind))
				setup, err := cfg.EpisodeSetup()
				if err != nil {
					_ = rep.Close()
					return err
				}
				bc := engine.BatchConfig{
					Episodes:    cfg.Batch().Episodes,
					Concurrency: cfg.Batch().Concurrency,
					BaseSeed:    baseSeed,
					KeepTraces:  keepTraces,
				}
				if persistTo != nil {
					bc.Store = persistTo
				}
				factory := func(spec engine.EpisodeSpec) (*engine.Engine, error) {
					return setup.Build(spec.Seed, logger)
				}

				results, err := engine.RunBatch(ctx, bc, factory, logger)
				for i := range results {
					if werr := rep.Write(&results[i]); werr != nil {
						_ = rep.Close()
						return werr
					}
				}
				if err != nil {
					_ = rep.Close()
					return fmt.Errorf("batch for %s failed: %w", kind, err)
				}
				logger.Info("Policy batch complete", zap.String("policy", string(kind)), zap.Int("episodes", len(results)))
			}
			return rep.Close()
		},
	}
	addSimulationFlags(batchCmd)
	batchCmd.Flags().IntP("episodes", "n", 0, "number of episodes per policy")
	batchCmd.Flags().Int("concurrency", 0, "episodes run in parallel")
	batchCmd.Flags().Bool("all-policies", false, "run the batch once for every policy")
	batchCmd.Flags().Bool("keep-traces", false, "include every episode's path in the report")
	batchCmd.Flags().Bool("persist", false, "save results to the database at database.url")
	batchCmd.Flags().StringP("output", "o", "", "report file (default stdout)")
	batchCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	return batchCmd
}
