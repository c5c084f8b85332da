package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/config"
	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/observability"
	"github.com/xkilldash9x/navsim/internal/reporting"
)

// episodeTrace is the document written by `run --trace`.
type episodeTrace struct {
	Seed   int64               `json:"seed"`
	Result engine.Result       `json:"result"`
	Ticks  []engine.TickResult `json:"ticks"`
}

// applySimulationFlags copies explicitly set flags over the loaded config.
func applySimulationFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		p, _ := flags.GetString("policy")
		cfg.SetNavigationPolicy(p)
	}
	if flags.Changed("mode") {
		m, _ := flags.GetString("mode")
		cfg.SetNavigationActionMode(m)
	}
	if flags.Changed("seed") {
		s, _ := flags.GetInt64("seed")
		cfg.SetNavigationSeed(s)
	}
	if flags.Changed("max-steps") {
		n, _ := flags.GetInt("max-steps")
		cfg.SetEngineMaxSteps(n)
	}
	if flags.Changed("tick-rate") {
		r, _ := flags.GetFloat64("tick-rate")
		cfg.SetEngineTickRate(r)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flag values: %w", err)
	}
	return nil
}

func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("policy", "p", "", "navigation policy: reactive-random, reactive-target, wall-follower, potential-field")
	cmd.Flags().String("mode", "", "action mode: discrete or continuous")
	cmd.Flags().Int64("seed", 0, "random seed (0 picks a time-based seed)")
	cmd.Flags().Int("max-steps", 0, "step limit per episode")
}

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single episode and print its outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applySimulationFlags(cmd, cfg); err != nil {
				return err
			}
			setup, err := cfg.EpisodeSetup()
			if err != nil {
				return err
			}

			seed := resolveSeed(cfg.Navigation().Seed)
			eng, err := setup.Build(seed, logger)
			if err != nil {
				return fmt.Errorf("failed to build episode: %w", err)
			}

			tracePath, _ := cmd.Flags().GetString("trace")
			var ticks []engine.TickResult
			var onTick func(engine.TickResult)
			if tracePath != "" {
				onTick = func(tr engine.TickResult) { ticks = append(ticks, tr) }
			}

			logger.Info("Running episode", zap.String("policy", string(setup.Policy)), zap.Int64("seed", seed))
			res := eng.Run(ctx, onTick)

			if tracePath != "" {
				if err := writeTrace(tracePath, episodeTrace{Seed: seed, Result: res, Ticks: ticks}); err != nil {
					return err
				}
				logger.Info("Trace written", zap.String("path", tracePath), zap.Int("ticks", len(ticks)))
			}

			format, _ := cmd.Flags().GetString("format")
			rep, err := reporting.NewForWriter(format, cmd.OutOrStdout(), Version)
			if err != nil {
				return err
			}
			if err := rep.Write(&engine.EpisodeResult{ID: uuid.New(), Seed: seed, Result: res, FinishedAt: time.Now().UTC()}); err != nil {
				return err
			}
			return rep.Close()
		},
	}
	addSimulationFlags(runCmd)
	runCmd.Flags().Float64("tick-rate", 0, "ticks per second (0 runs unpaced)")
	runCmd.Flags().String("trace", "", "write every tick as JSON to this file")
	runCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	return runCmd
}

func writeTrace(path string, trace episodeTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file %s: %w", path, err)
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(trace)
	closeErr := f.Close()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode trace: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close trace file: %w", closeErr)
	}
	return nil
}
