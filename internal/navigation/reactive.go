package navigation

import (
	"math/rand"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// ReactiveRandom wanders: it picks uniformly among the allowed directions.
type ReactiveRandom struct {
	rng  *rand.Rand
	mode ActionMode
}

func NewReactiveRandom(rng *rand.Rand, mode ActionMode) *ReactiveRandom {
	return &ReactiveRandom{rng: rng, mode: mode}
}

func (p *ReactiveRandom) Kind() Kind   { return KindReactiveRandom }
func (p *ReactiveRandom) Name() string { return "Reactive (random)" }
func (p *ReactiveRandom) Reset()       {}

// Decide heads for the target without a reading, and reverses when every
// direction is blocked.
func (p *ReactiveRandom) Decide(pose robot.Pose, w *world.World, reading *sensor.Reading) float64 {
	if reading == nil {
		return blindBearing(pose, w, p.mode)
	}
	allowed := reading.Allowed()
	if len(allowed) == 0 {
		return reverse(pose.Heading)
	}
	return allowed[p.rng.Intn(len(allowed))]
}

// ReactiveTarget greedily takes the allowed direction closest to the bearing
// toward the target.
type ReactiveTarget struct {
	mode ActionMode
}

func NewReactiveTarget(mode ActionMode) *ReactiveTarget { return &ReactiveTarget{mode: mode} }

func (p *ReactiveTarget) Kind() Kind   { return KindReactiveTarget }
func (p *ReactiveTarget) Name() string { return "Reactive (target-centric)" }
func (p *ReactiveTarget) Reset()       {}

func (p *ReactiveTarget) Decide(pose robot.Pose, w *world.World, reading *sensor.Reading) float64 {
	if reading == nil {
		return blindBearing(pose, w, p.mode)
	}
	allowed := reading.Allowed()
	if len(allowed) == 0 {
		return reverse(pose.Heading)
	}
	bearing := geometry.Bearing(pose.Position, w.Target().Center)
	return nearestHeading(allowed, bearing, pose.Heading)
}

// blindBearing is the heading used with sensing disabled: the bearing to the
// target, snapped to the compass in discrete mode.
func blindBearing(pose robot.Pose, w *world.World, mode ActionMode) float64 {
	bearing := geometry.Bearing(pose.Position, w.Target().Center)
	if mode == ModeContinuous {
		return bearing
	}
	return geometry.SnapToCompass(bearing)
}
