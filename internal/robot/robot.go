// Package robot holds the kinematic state of the point robot and the two ways
// it moves: a fixed-length discrete step and a continuous velocity update.
package robot

import (
	"github.com/xkilldash9x/navsim/internal/geometry"
)

// Pose is where the robot is and which way it faces. Heading is in degrees,
// 0 along +X and counter-clockwise positive.
type Pose struct {
	Position geometry.Vector2D `json:"position"`
	Heading  float64           `json:"heading"`
}

// State is the full mutable robot state for one episode.
type State struct {
	Pose
	LinearVelocity  float64 `json:"linear_velocity"`
	AngularVelocity float64 `json:"angular_velocity"`
}

// NewState places a robot at rest in the given pose.
func NewState(start Pose) State {
	start.Heading = geometry.NormalizeDegrees(start.Heading)
	return State{Pose: start}
}

// Reset puts the robot back at start with zero velocity.
func (s *State) Reset(start Pose) {
	*s = NewState(start)
}

// ApplyStep translates the pose by stepLength along heading. The new pose
// faces the commanded heading. No collision checking happens here.
func ApplyStep(p Pose, heading, stepLength float64) Pose {
	heading = geometry.NormalizeDegrees(heading)
	return Pose{
		Position: p.Position.Add(geometry.FromHeading(heading).Mul(stepLength)),
		Heading:  heading,
	}
}

// Advance integrates one tick of continuous motion. The heading turns by
// angularVel degrees first, then the robot moves linearVel along the new heading.
func Advance(s State, linearVel, angularVel float64) State {
	heading := geometry.NormalizeDegrees(s.Heading + angularVel)
	return State{
		Pose: Pose{
			Position: s.Position.Add(geometry.FromHeading(heading).Mul(linearVel)),
			Heading:  heading,
		},
		LinearVelocity:  linearVel,
		AngularVelocity: angularVel,
	}
}
