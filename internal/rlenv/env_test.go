package rlenv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/world"
)

func newWorld(t *testing.T, target geometry.Vector2D, obstacles ...world.Obstacle) *world.World {
	t.Helper()
	w, err := world.New(world.DefaultOptions(), obstacles, world.Target{Center: target, Radius: 25})
	require.NoError(t, err)
	return w
}

func newEnv(t *testing.T, cfg Config, w *world.World) *Env {
	t.Helper()
	env, err := New(cfg, w, zaptest.NewLogger(t))
	require.NoError(t, err)
	return env
}

func TestNew_Validation(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))

	_, err := New(DefaultConfig(), nil, nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxSteps = 0
	_, err = New(cfg, w, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Mode = "analog"
	_, err = New(cfg, w, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxAngular = cfg.MinAngular
	_, err = New(cfg, w, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Sensor.Angles = []float64{0, 90, 180, 270}
	_, err = New(cfg, w, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReset_Observation(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600), world.Circle{Center: geometry.Vec(450, 200)})
	env := newEnv(t, DefaultConfig(), w)

	obs, info := env.Reset()

	// Beam 0 looks along the heading (east) at a surface 55 units away.
	assert.InDelta(t, 55.0/120.0, obs[0], 1e-9)
	assert.InDelta(t, 1.0, obs[4], 1e-9, "nothing behind")
	for i := 0; i < 8; i++ {
		assert.GreaterOrEqual(t, obs[i], 0.0)
		assert.LessOrEqual(t, obs[i], 1.0)
	}

	dist := math.Hypot(250, 400)
	assert.InDelta(t, 250/dist, obs[8], 1e-9)
	assert.InDelta(t, 400/dist, obs[9], 1e-9)
	assert.InDelta(t, 1.0, obs[10], 1e-9)
	assert.InDelta(t, 0.0, obs[11], 1e-9)
	assert.InDelta(t, -1.0, obs[12], 1e-9, "at rest maps to the bottom of the linear range")
	assert.InDelta(t, 0.0, obs[13], 1e-9)

	assert.Equal(t, geometry.Vec(350, 200), info.Position)
	assert.Zero(t, info.Step)
	assert.InDelta(t, dist, info.DistanceToGoal, 1e-9)
}

func TestStep_ProgressReward(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	env := newEnv(t, DefaultConfig(), w)
	before := w.DistanceToTarget(geometry.Vec(350, 200))

	obs, reward, terminated, truncated, info := env.Step(Action{Discrete: Straight})

	after := w.DistanceToTarget(geometry.Vec(370, 200))
	assert.InDelta(t, (before-after)/100-0.01, reward, 1e-9)
	assert.False(t, terminated)
	assert.False(t, truncated)
	assert.Equal(t, geometry.Vec(370, 200), info.Position)
	assert.Equal(t, 1, info.Step)
	assert.InDelta(t, 1.0, obs[12], 1e-9, "full speed")

	// Turning left runs at half speed.
	_, _, _, _, info = env.Step(Action{Discrete: TurnLeft})
	assert.InDelta(t, 45.0, info.Heading, 1e-9)
	assert.InDelta(t, 10.0, info.Position.Dist(geometry.Vec(370, 200)), 1e-9)

	_, _, _, _, info = env.Step(Action{Discrete: TurnRight})
	assert.InDelta(t, 0.0, info.Heading, 1e-9)
}

func TestStep_Collision(t *testing.T) {
	w := newWorld(t, geometry.Vec(350, 600), world.Circle{Center: geometry.Vec(350, 260)})
	cfg := DefaultConfig()
	cfg.Start.Heading = 90
	env := newEnv(t, cfg, w)

	_, reward, terminated, truncated, info := env.Step(Action{Discrete: Straight})
	assert.Equal(t, -1.0, reward)
	assert.True(t, terminated)
	assert.False(t, truncated)
	assert.True(t, info.Collision)
	assert.Equal(t, geometry.Vec(350, 200), info.Position, "the move is refused")

	_, reward, terminated, _, _ = env.Step(Action{Discrete: Straight})
	assert.Zero(t, reward, "episode is over until reset")
	assert.True(t, terminated)

	_, info = env.Reset()
	assert.False(t, info.Collision)
	assert.Zero(t, info.Step)
}

func TestStep_GoalReached(t *testing.T) {
	w := newWorld(t, geometry.Vec(410, 200))
	env := newEnv(t, DefaultConfig(), w)

	_, reward, terminated, _, info := env.Step(Action{Discrete: Straight})
	assert.Equal(t, 1.0, reward)
	assert.True(t, terminated)
	assert.True(t, info.GoalReached)
}

func TestStep_Truncation(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	cfg := DefaultConfig()
	cfg.MaxSteps = 3
	env := newEnv(t, cfg, w)

	for i := 1; i <= 3; i++ {
		_, _, terminated, truncated, info := env.Step(Action{Discrete: TurnLeft})
		assert.False(t, terminated)
		assert.Equal(t, i == 3, truncated, "step %d", i)
		assert.Equal(t, i, info.Step)
	}
}

func TestStep_Continuous(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	cfg := DefaultConfig()
	cfg.Mode = navigation.ModeContinuous
	env := newEnv(t, cfg, w)

	obs, _, _, _, info := env.Step(Action{Linear: -1, Angular: 1})
	assert.Equal(t, geometry.Vec(350, 200), info.Position, "bottom of the linear range is standing still")
	assert.InDelta(t, 45.0, info.Heading, 1e-9)
	assert.InDelta(t, 1.0, obs[13], 1e-9)

	_, _, _, _, info = env.Step(Action{Linear: 5, Angular: 0})
	assert.InDelta(t, 20.0, info.Position.Dist(geometry.Vec(350, 200)), 1e-9, "actions are clamped")
	assert.InDelta(t, 45.0, info.Heading, 1e-9)
	assert.InDelta(t, 20.0, env.State().LinearVelocity, 1e-9)

	_, _, _, _, info = env.Step(Action{Linear: math.NaN(), Angular: math.NaN()})
	assert.InDelta(t, 45.0, info.Heading, 1e-9, "NaN maps to the middle of the range")
}

func TestNormalizeRoundTrip(t *testing.T) {
	for _, v := range []float64{-1, -0.5, 0, 0.25, 1} {
		assert.InDelta(t, v, normalize(denormalize(v, -45, 45), -45, 45), 1e-12)
		assert.InDelta(t, v, normalize(denormalize(v, 0, 20), 0, 20), 1e-12)
	}
}
