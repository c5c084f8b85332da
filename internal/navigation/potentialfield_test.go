package navigation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/world"
)

func newPotentialField(t *testing.T, mode ActionMode) *PotentialField {
	t.Helper()
	pf, err := NewPotentialField(DefaultPotentialFieldParams(), mode, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	return pf
}

func TestPotentialFieldParams_Validate(t *testing.T) {
	require.NoError(t, DefaultPotentialFieldParams().Validate())

	mutations := map[string]func(*PotentialFieldParams){
		"negative repulsion": func(p *PotentialFieldParams) { p.RepulsiveGain = -1 },
		"zero influence":     func(p *PotentialFieldParams) { p.InfluenceRadius = 0 },
		"zero min distance":  func(p *PotentialFieldParams) { p.MinDistance = 0 },
		"zero window":        func(p *PotentialFieldParams) { p.StuckWindow = 0 },
		"zero max stuck":     func(p *PotentialFieldParams) { p.MaxStuckTicks = 0 },
		"zero escape gain":   func(p *PotentialFieldParams) { p.EscapeGain = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := DefaultPotentialFieldParams()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}

	_, err := NewPotentialField(DefaultPotentialFieldParams(), "analog", nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPotentialField_NoObstaclesFollowsBearing(t *testing.T) {
	target := geometry.Vec(600, 600)
	w := newWorld(t, target)
	positions := []geometry.Vector2D{
		geometry.Vec(350, 200), geometry.Vec(10, 10), geometry.Vec(690, 100), geometry.Vec(600, 100), geometry.Vec(123.4, 567.8),
	}

	for _, pos := range positions {
		bearing := geometry.Bearing(pos, target)

		cont := newPotentialField(t, ModeContinuous)
		assert.Equal(t, bearing, cont.Decide(robot.Pose{Position: pos}, w, nil), "continuous at %+v", pos)

		disc := newPotentialField(t, ModeDiscrete)
		assert.Equal(t, geometry.SnapToCompass(bearing), disc.Decide(robot.Pose{Position: pos}, w, nil), "discrete at %+v", pos)
	}
}

func TestPotentialField_MidpointObstacleBendsHeading(t *testing.T) {
	target := geometry.Vec(350, 400)
	w := newWorld(t, target, world.Circle{Center: geometry.Vec(350, 300)})

	t.Run("continuous", func(t *testing.T) {
		pos := geometry.Vec(350, 200)
		pf := newPotentialField(t, ModeContinuous)
		h := pf.Decide(robot.Pose{Position: pos}, w, nil)
		assert.False(t, geometry.SameHeading(h, geometry.Bearing(pos, target)), "got %v", h)
	})

	t.Run("discrete", func(t *testing.T) {
		pos := geometry.Vec(350, 240)
		pf := newPotentialField(t, ModeDiscrete)
		h := pf.Decide(robot.Pose{Position: pos}, w, nil)
		assert.NotEqual(t, geometry.SnapToCompass(geometry.Bearing(pos, target)), h)
	})
}

func TestPotentialField_Forces(t *testing.T) {
	target := geometry.Vec(350, 400)
	w := newWorld(t, target, world.Circle{Center: geometry.Vec(350, 300)})
	pf := newPotentialField(t, ModeContinuous)

	// 15 units from the surface: repulsion 500/15^2 straight down.
	f := pf.Forces(geometry.Vec(350, 240), target, w, false)
	assert.Equal(t, 1, f.Near)
	assert.InDelta(t, 1.0, f.Attractive.Y, 1e-9)
	assert.InDelta(t, -500.0/225.0, f.Repulsive.Y, 1e-9)
	assert.InDelta(t, 0.3*500.0/225.0, f.Tangential.Mag(), 1e-9)
	assert.False(t, f.Boosted)

	stuck := pf.Forces(geometry.Vec(350, 240), target, w, true)
	assert.True(t, stuck.Boosted)
	assert.InDelta(t, 2.0, stuck.Tangential.Mag(), 1e-9)
	assert.InDelta(t, 0.0, stuck.Tangential.Dot(stuck.Repulsive), 1e-9, "tangential stays perpendicular")

	far := pf.Forces(geometry.Vec(350, 150), target, w, false)
	assert.Equal(t, 0, far.Near, "surface 105 away is outside the influence radius")
	assert.True(t, far.Repulsive.IsZero())

	// Touching the surface clamps d to the minimum distance.
	touching := pf.Forces(geometry.Vec(350, 255), target, w, false)
	assert.InDelta(t, 500.0, touching.Repulsive.Mag(), 1e-9)
}

func TestPotentialField_StallBoostsTangential(t *testing.T) {
	target := geometry.Vec(350, 400)
	w := newWorld(t, target, world.Circle{Center: geometry.Vec(350, 300)})
	pf := newPotentialField(t, ModeContinuous)

	// At about 22.4 from the surface the repulsion nearly cancels the pull.
	pos := geometry.Vec(350, 300-45-22.36)
	f := pf.Forces(pos, target, w, false)
	require.Less(t, f.Attractive.Add(f.Repulsive).Mag(), 0.2)
	assert.True(t, f.Boosted)
	assert.InDelta(t, 2.0, f.Tangential.Mag(), 1e-9)
}

func TestPotentialField_StuckStateMachine(t *testing.T) {
	target := geometry.Vec(350, 400)
	w := newWorld(t, target, world.Circle{Center: geometry.Vec(350, 300)})
	pf := newPotentialField(t, ModeDiscrete)
	pose := robot.Pose{Position: geometry.Vec(350, 240), Heading: 90}
	params := DefaultPotentialFieldParams()

	var normal float64
	for i := 0; i < params.StuckWindow; i++ {
		normal = pf.Decide(pose, w, nil)
		assert.Equal(t, StateNormal, pf.State(), "tick %d", i)
	}

	// One more sample fills the window and the robot has not moved at all.
	stuckHeading := pf.Decide(pose, w, nil)
	assert.Equal(t, StateStuck, pf.State())
	assert.NotEqual(t, normal, stuckHeading)

	for i := 1; i < params.MaxStuckTicks; i++ {
		pf.Decide(pose, w, nil)
		require.Equal(t, StateStuck, pf.State())
	}
	assert.Equal(t, 0, pf.Escapes())

	before := pf.last
	escape := pf.Decide(pose, w, nil)
	assert.Equal(t, 1, pf.Escapes())
	assert.Equal(t, StateNormal, pf.State())
	assert.Equal(t, 0, pf.Memory().Len(), "history cleared after the escape")
	assert.NotEqual(t, before, escape)
	assert.Contains(t, geometry.CompassHeadings[:], escape)
}

func TestPotentialField_RecoveryReturnsToNormal(t *testing.T) {
	target := geometry.Vec(600, 600)
	w := newWorld(t, target)
	pf := newPotentialField(t, ModeDiscrete)

	pos := geometry.Vec(100, 100)
	for i := 0; i <= DefaultPotentialFieldParams().StuckWindow; i++ {
		pf.Decide(robot.Pose{Position: pos}, w, nil)
	}
	require.Equal(t, StateStuck, pf.State())

	pf.Decide(robot.Pose{Position: pos.Add(geometry.Vec(20, 0))}, w, nil)
	assert.Equal(t, StateNormal, pf.State())
}

func TestPotentialField_EscapeUsesAllowedHeadings(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	params := DefaultPotentialFieldParams()
	params.StuckWindow = 1
	params.MaxStuckTicks = 1
	pf, err := NewPotentialField(params, ModeDiscrete, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	pose := robot.Pose{Position: geometry.Vec(100, 100)}
	reading := readingWith(0, 90, 135, 180, 225, 270, 315)

	pf.Decide(pose, w, reading) // fills the window
	pf.Decide(pose, w, reading) // enters STUCK
	require.Equal(t, StateStuck, pf.State())
	h := pf.Decide(pose, w, reading)
	assert.Equal(t, 1, pf.Escapes())
	assert.Equal(t, 45.0, h, "45 is the only allowed heading")
}

func TestPotentialField_BlockedSnapFallsBackToAllowed(t *testing.T) {
	target := geometry.Vec(600, 600)
	w := newWorld(t, target)
	pf := newPotentialField(t, ModeDiscrete)
	pose := robot.Pose{Position: geometry.Vec(350, 200)}

	// Bearing is about 58, which snaps to 45; with 45 blocked the closest allowed is 90.
	assert.Equal(t, 90.0, pf.Decide(pose, w, readingWith(45)))

	pf.Reset()
	assert.Equal(t, 180.0, pf.Decide(pose, w, allBlocked()), "reverses when nothing is allowed")
}

func TestPotentialField_OnCollisionSteersOff(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	pf := newPotentialField(t, ModeDiscrete)
	pose := robot.Pose{Position: geometry.Vec(350, 200)}

	first := pf.Decide(pose, w, nil)
	assert.Equal(t, first, pf.Decide(pose, w, nil), "same heading without feedback")

	var observer CollisionObserver = pf
	observer.OnCollision()
	assert.NotEqual(t, first, pf.Decide(pose, w, nil))
}

func TestPotentialField_Reset(t *testing.T) {
	w := newWorld(t, geometry.Vec(600, 600))
	pf := newPotentialField(t, ModeDiscrete)
	pose := robot.Pose{Position: geometry.Vec(100, 100)}
	for i := 0; i < 30; i++ {
		pf.Decide(pose, w, nil)
	}
	require.Positive(t, pf.Escapes())

	pf.Reset()
	assert.Equal(t, 0, pf.Escapes())
	assert.Equal(t, StateNormal, pf.State())
	assert.Equal(t, 0, pf.Memory().Len())
}
