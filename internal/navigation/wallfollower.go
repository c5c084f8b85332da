package navigation

import (
	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// wallFollowOffsets is the right-hand rotation: straight first, then clockwise
// in 45 degree steps all the way round.
var wallFollowOffsets = [8]float64{0, -45, -90, -135, 180, 135, 90, 45}

// WallFollower keeps going straight and turns clockwise until it finds an
// allowed compass heading.
type WallFollower struct{}

func NewWallFollower() *WallFollower { return &WallFollower{} }

func (p *WallFollower) Kind() Kind   { return KindWallFollower }
func (p *WallFollower) Name() string { return "Wall follower" }
func (p *WallFollower) Reset()       {}

func (p *WallFollower) Decide(pose robot.Pose, _ *world.World, reading *sensor.Reading) float64 {
	if reading == nil {
		return pose.Heading
	}
	for _, candidate := range p.Candidates(pose.Heading) {
		if beam, ok := reading.Lookup(candidate); ok && !beam.Blocked {
			return beam.Heading
		}
	}
	return reverse(pose.Heading)
}

// Candidates returns the rotation order the follower tries from heading.
func (p *WallFollower) Candidates(heading float64) []float64 {
	current := geometry.SnapToCompass(heading)
	out := make([]float64, len(wallFollowOffsets))
	for i, off := range wallFollowOffsets {
		out[i] = geometry.NormalizeDegrees(current + off)
	}
	return out
}
