package cmd

import (
	"fmt"
	"math/rand"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/observability"
	"github.com/xkilldash9x/navsim/internal/rlenv"
)

// rolloutStats summarizes one uniformly random rollout.
type rolloutStats struct {
	Return      float64
	Steps       int
	GoalReached bool
	Collision   bool
}

// randomRollout drives env with uniformly random actions until the episode ends.
func randomRollout(env *rlenv.Env, mode navigation.ActionMode, rng *rand.Rand) rolloutStats {
	env.Reset()
	var stats rolloutStats
	for {
		var a rlenv.Action
		if mode == navigation.ModeContinuous {
			a.Linear = rng.Float64()*2 - 1
			a.Angular = rng.Float64()*2 - 1
		} else {
			a.Discrete = rng.Intn(rlenv.NumDiscreteActions)
		}
		_, reward, terminated, truncated, info := env.Step(a)
		stats.Return += reward
		stats.Steps = info.Step
		stats.GoalReached = info.GoalReached
		stats.Collision = info.Collision
		if terminated || truncated {
			return stats
		}
	}
}

func newRLCmd() *cobra.Command {
	rlCmd := &cobra.Command{
		Use:   "rl",
		Short: "Roll out random actions in the reinforcement-learning environment",
		Long: `Runs the Reset/Step environment with uniformly random actions and prints
the return of each episode. Useful as a baseline for trained agents.`,
		Args: cobra.NoArgs,
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
			envCfg, err := cfg.RLEnv()
			if err != nil {
				return err
			}
			w, err := cfg.BuildWorld()
			if err != nil {
				return err
			}
			env, err := rlenv.New(envCfg, w, logger)
			if err != nil {
				return err
			}

			episodes, _ := cmd.Flags().GetInt("episodes")
			if episodes < 1 {
				return fmt.Errorf("--episodes must be positive, got %d", episodes)
			}
			seed := resolveSeed(cfg.Navigation().Seed)
			rng := rand.New(rand.NewSource(seed))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EPISODE\tRETURN\tSTEPS\tEND")
			var total float64
			for i := 0; i < episodes; i++ {
				if ctx.Err() != nil {
					break
				}
				s := randomRollout(env, envCfg.Mode, rng)
				total += s.Return
				end := "step_limit"
				switch {
				case s.GoalReached:
					end = "goal_reached"
				case s.Collision:
					end = "collision"
				}
				fmt.Fprintf(tw, "%d\t%.3f\t%d\t%s\n", i, s.Return, s.Steps, end)
			}
			fmt.Fprintf(tw, "mean\t%.3f\t\t\n", total/float64(episodes))
			logger.Debug("Random rollouts finished", zap.Int("episodes", episodes), zap.Int64("seed", seed))
			return tw.Flush()
		},
	}
	rlCmd.Flags().String("mode", "", "action mode: discrete or continuous")
	rlCmd.Flags().Int64("seed", 0, "random seed (0 picks a time-based seed)")
	rlCmd.Flags().Int("max-steps", 0, "step limit per episode")
	rlCmd.Flags().IntP("episodes", "n", 5, "number of rollouts")
	return rlCmd
}
