package reporting

import (
	"sort"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/navigation"
)

// PolicySummary aggregates the episodes run under one policy.
type PolicySummary struct {
	Policy        navigation.Kind `json:"policy"`
	Episodes      int             `json:"episodes"`
	GoalsReached  int             `json:"goals_reached"`
	CollisionEnds int             `json:"collision_ends"`
	StepLimitEnds int             `json:"step_limit_ends"`
	Canceled      int             `json:"canceled"`
	SuccessRate   float64         `json:"success_rate"`
	MeanSteps     float64         `json:"mean_steps"`
	MeanPath      float64         `json:"mean_path_length"`
	// MeanGoalSteps only counts episodes that reached the goal.
	MeanGoalSteps float64 `json:"mean_goal_steps"`
	Collisions    int     `json:"collisions"`
	Escapes       int     `json:"escapes"`
}

// Summarize groups results by policy, ordered by policy name.
func Summarize(results []engine.EpisodeResult) []PolicySummary {
	byPolicy := make(map[navigation.Kind]*PolicySummary)
	goalSteps := make(map[navigation.Kind]int)

	for i := range results {
		r := &results[i]
		s, ok := byPolicy[r.Policy]
		if !ok {
			s = &PolicySummary{Policy: r.Policy}
			byPolicy[r.Policy] = s
		}
		s.Episodes++
		s.MeanSteps += float64(r.Steps)
		s.MeanPath += r.PathLength
		s.Collisions += r.Collisions
		s.Escapes += r.Escapes
		switch r.Outcome {
		case engine.OutcomeGoalReached:
			s.GoalsReached++
			goalSteps[r.Policy] += r.Steps
		case engine.OutcomeCollision:
			s.CollisionEnds++
		case engine.OutcomeStepLimit:
			s.StepLimitEnds++
		case engine.OutcomeCanceled:
			s.Canceled++
		}
	}

	out := make([]PolicySummary, 0, len(byPolicy))
	for kind, s := range byPolicy {
		n := float64(s.Episodes)
		s.SuccessRate = float64(s.GoalsReached) / n
		s.MeanSteps /= n
		s.MeanPath /= n
		if s.GoalsReached > 0 {
			s.MeanGoalSteps = float64(goalSteps[kind]) / float64(s.GoalsReached)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Policy < out[j].Policy })
	return out
}
