// internal/engine/engine_test.go
package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// -- Test Helpers --

// scriptedPolicy replays fixed headings and counts collision callbacks.
type scriptedPolicy struct {
	headings   []float64
	calls      int
	collisions int
	resets     int
	readings   []*sensor.Reading
}

func (p *scriptedPolicy) Kind() navigation.Kind { return navigation.KindReactiveTarget }
func (p *scriptedPolicy) Name() string          { return "scripted" }
func (p *scriptedPolicy) Reset()                { p.resets++; p.calls = 0 }
func (p *scriptedPolicy) OnCollision()          { p.collisions++ }
func (p *scriptedPolicy) Decide(_ robot.Pose, _ *world.World, r *sensor.Reading) float64 {
	p.readings = append(p.readings, r)
	h := p.headings[p.calls%len(p.headings)]
	p.calls++
	return h
}

func arena(t *testing.T, target geometry.Vector2D, obstacles ...world.Obstacle) *world.World {
	t.Helper()
	opts := world.DefaultOptions()
	w, err := world.New(opts, world.WithBoundaryWalls(opts, obstacles...), world.Target{Center: target, Radius: 25})
	require.NoError(t, err)
	return w
}

func defaultSonar(t *testing.T) *sensor.Sonar {
	t.Helper()
	s, err := sensor.New(sensor.DefaultConfig())
	require.NoError(t, err)
	return s
}

// -- Test Suite --

func TestNew_Validation(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600), world.Circle{Center: geometry.Vec(350, 350)})
	policy := navigation.NewReactiveTarget(navigation.ModeDiscrete)
	logger := zaptest.NewLogger(t)

	_, err := New(DefaultConfig(), nil, nil, policy, logger)
	assert.Error(t, err)
	_, err = New(DefaultConfig(), w, nil, nil, logger)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxSteps = 0
	_, err = New(cfg, w, nil, policy, logger)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Start.Position = geometry.Vec(350, 350)
	_, err = New(cfg, w, nil, policy, logger)
	assert.ErrorIs(t, err, ErrInvalidConfig, "start inside an obstacle")

	cfg = DefaultConfig()
	cfg.Mode = navigation.ModeContinuous
	cfg.MaxLinear = 0
	_, err = New(cfg, w, nil, policy, logger)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRun_ReachesGoal(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600), world.Circle{Center: geometry.Vec(350, 350)})
	eng, err := New(DefaultConfig(), w, defaultSonar(t), navigation.NewReactiveTarget(navigation.ModeDiscrete), zaptest.NewLogger(t))
	require.NoError(t, err)

	var ticks []TickResult
	res := eng.Run(context.Background(), func(tr TickResult) { ticks = append(ticks, tr) })

	assert.Equal(t, OutcomeGoalReached, res.Outcome)
	assert.LessOrEqual(t, res.Steps, 150)
	assert.Equal(t, len(ticks), res.Steps)
	assert.Zero(t, res.Collisions)
	assert.InDelta(t, float64(res.Steps)*20, res.PathLength, 1e-6)
	assert.LessOrEqual(t, res.FinalDistance, 45.0)

	require.Len(t, res.Trace, res.Steps+1)
	assert.Equal(t, geometry.Vec(350, 200), res.Trace[0])
	for _, p := range res.Trace {
		assert.False(t, w.CheckCollision(p, 10))
	}
	assert.True(t, eng.Done())

	// Further ticks are no-ops.
	after := eng.Tick()
	assert.Equal(t, OutcomeGoalReached, after.Outcome)
	assert.Equal(t, res.Steps, eng.Result().Steps)
}

func TestTick_CollisionStopsEpisode(t *testing.T) {
	// Surface 15 units north of the start; the target sits behind it.
	w := arena(t, geometry.Vec(350, 600), world.Circle{Center: geometry.Vec(350, 260)})
	policy := &scriptedPolicy{headings: []float64{90}}
	eng, err := New(DefaultConfig(), w, nil, policy, zaptest.NewLogger(t))
	require.NoError(t, err)

	tr := eng.Tick()
	assert.True(t, tr.Collided)
	assert.False(t, tr.Moved)
	assert.Equal(t, OutcomeCollision, tr.Outcome)
	assert.Equal(t, geometry.Vec(350, 200), tr.Pose.Position, "rejected steps never move the robot")
	assert.Equal(t, 1, policy.collisions)
	assert.Nil(t, policy.readings[0], "sensing disabled")
}

func TestTick_CollisionWithoutStop(t *testing.T) {
	w := arena(t, geometry.Vec(350, 600), world.Circle{Center: geometry.Vec(350, 260)})
	policy := &scriptedPolicy{headings: []float64{90}}
	cfg := DefaultConfig()
	cfg.StopOnCollision = false
	cfg.MaxSteps = 7
	eng, err := New(cfg, w, nil, policy, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := eng.Run(context.Background(), nil)
	assert.Equal(t, OutcomeStepLimit, res.Outcome)
	assert.Equal(t, 7, res.Steps)
	assert.Equal(t, 7, res.Collisions)
	assert.Equal(t, 7, policy.collisions)
	assert.Len(t, res.Trace, 1)
}

// The engine commits a step exactly when the sensor reported its beam unblocked.
func TestTick_AgreesWithSensorBlocked(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600),
		world.Circle{Center: geometry.Vec(350, 270)},
		world.Polygon{Vertices: []geometry.Vector2D{{X: 360, Y: 150}, {X: 420, Y: 150}, {X: 420, Y: 250}}},
	)
	for _, heading := range geometry.CompassHeadings {
		policy := &scriptedPolicy{headings: []float64{heading}}
		cfg := DefaultConfig()
		cfg.StopOnCollision = false
		eng, err := New(cfg, w, defaultSonar(t), policy, zaptest.NewLogger(t))
		require.NoError(t, err)

		tr := eng.Tick()
		require.NotNil(t, tr.Reading)
		beam, ok := tr.Reading.Lookup(heading)
		require.True(t, ok)
		assert.Equal(t, beam.Blocked, tr.Collided, "heading %v", heading)
		assert.Equal(t, !beam.Blocked, tr.Moved, "heading %v", heading)
	}
}

func TestRun_Continuous(t *testing.T) {
	opts := world.DefaultOptions()
	w, err := world.New(opts, nil, world.Target{Center: geometry.Vec(600, 600), Radius: 25})
	require.NoError(t, err)

	pf, err := navigation.NewPotentialField(navigation.DefaultPotentialFieldParams(), navigation.ModeContinuous, nil)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Mode = navigation.ModeContinuous
	eng, err := New(cfg, w, nil, pf, zaptest.NewLogger(t))
	require.NoError(t, err)

	first := eng.Tick()
	assert.InDelta(t, 45.0, first.Pose.Heading, 1e-9, "turn is capped at the max angular velocity")
	assert.InDelta(t, 20.0, first.Pose.Position.Dist(geometry.Vec(350, 200)), 1e-9)
	assert.InDelta(t, 45.0, eng.State().AngularVelocity, 1e-9)

	res := eng.Run(context.Background(), nil)
	assert.Equal(t, OutcomeGoalReached, res.Outcome)
}

func TestRun_Canceled(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600))
	eng, err := New(DefaultConfig(), w, nil, navigation.NewReactiveTarget(navigation.ModeDiscrete), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := eng.Run(ctx, nil)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.Zero(t, res.Steps)
}

func TestRun_Paced(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600))
	cfg := DefaultConfig()
	cfg.TickRate = 1000
	cfg.MaxSteps = 5
	cfg.StopOnCollision = false
	eng, err := New(cfg, w, nil, &scriptedPolicy{headings: []float64{0, 180}}, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := eng.Run(context.Background(), nil)
	assert.Equal(t, OutcomeStepLimit, res.Outcome)
	assert.Equal(t, 5, res.Steps)
}

func TestReset(t *testing.T) {
	w := arena(t, geometry.Vec(600, 600))
	policy := &scriptedPolicy{headings: []float64{0}}
	eng, err := New(DefaultConfig(), w, nil, policy, zaptest.NewLogger(t))
	require.NoError(t, err)

	eng.Tick()
	eng.Tick()
	require.Len(t, eng.Trace(), 3)

	eng.Reset()
	assert.Equal(t, geometry.Vec(350, 200), eng.State().Position)
	assert.Len(t, eng.Trace(), 1)
	assert.Equal(t, OutcomeRunning, eng.Outcome())
	assert.Equal(t, 2, policy.resets, "once from New and once from Reset")
}

func TestNew_StartAtGoal(t *testing.T) {
	w := arena(t, geometry.Vec(350, 220))
	eng, err := New(DefaultConfig(), w, nil, navigation.NewReactiveTarget(navigation.ModeDiscrete), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, eng.Done())
	assert.Equal(t, OutcomeGoalReached, eng.Run(context.Background(), nil).Outcome)
}

func TestTick_ContinuousCappedTurnRotatesInPlace(t *testing.T) {
	// The square sits across the 45 degree move but clear of the 90 degree one.
	square := world.Polygon{Vertices: []geometry.Vector2D{{X: 372, Y: 212}, {X: 380, Y: 212}, {X: 380, Y: 220}, {X: 372, Y: 220}}}
	w := arena(t, geometry.Vec(600, 600), square)
	policy := &scriptedPolicy{headings: []float64{90}}

	cfg := DefaultConfig()
	cfg.Mode = navigation.ModeContinuous
	eng, err := New(cfg, w, nil, policy, zaptest.NewLogger(t))
	require.NoError(t, err)

	first := eng.Tick()
	assert.True(t, first.Turned)
	assert.False(t, first.Moved)
	assert.False(t, first.Collided)
	assert.Equal(t, OutcomeRunning, first.Outcome)
	assert.Equal(t, geometry.Vec(350, 200), first.Pose.Position)
	assert.InDelta(t, 45.0, first.Pose.Heading, 1e-9)
	assert.Zero(t, eng.State().LinearVelocity)
	assert.Zero(t, policy.collisions)

	second := eng.Tick()
	assert.True(t, second.Moved)
	assert.False(t, second.Turned)
	assert.InDelta(t, 90.0, second.Pose.Heading, 1e-9)
	assert.InDelta(t, 0.0, second.Pose.Position.Dist(geometry.Vec(350, 220)), 1e-9)
	assert.Zero(t, eng.Result().Collisions)
}

// Sensor-driven policies only ever step along headings the sensor cleared, so
// capped continuous turns must not turn into collisions.
func TestRun_ContinuousSensorPoliciesNeverCollide(t *testing.T) {
	for _, kind := range []navigation.Kind{navigation.KindReactiveRandom, navigation.KindWallFollower} {
		setup := testSetup(kind)
		setup.Engine.Mode = navigation.ModeContinuous
		setup.Params.Mode = navigation.ModeContinuous

		for seed := int64(1); seed <= 10; seed++ {
			eng, err := setup.Build(seed, nil)
			require.NoError(t, err)

			res := eng.Run(context.Background(), nil)
			assert.NotEqual(t, OutcomeCollision, res.Outcome, "%s seed %d", kind, seed)
			assert.Zero(t, res.Collisions, "%s seed %d", kind, seed)
		}
	}
}
