// Package sensor implements the fixed-angle range sensor the robot uses to
// decide which compass directions are safe to step into.
package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/world"
)

// ErrInvalidConfig is returned by New for unusable sensor settings.
var ErrInvalidConfig = errors.New("invalid sensor config")

// Config describes the beam layout.
type Config struct {
	// Angles are the beam directions in degrees, in sweep order.
	Angles   []float64 `json:"angles"`
	MaxRange float64   `json:"max_range"`
	// ProbeDistance is the length of the swept clearance check behind Blocked.
	// It should equal the step length so Blocked predicts step rejection.
	ProbeDistance float64 `json:"probe_distance"`
	// RelativeToHeading rotates every beam by the robot heading.
	RelativeToHeading bool `json:"relative_to_heading"`
}

// DefaultConfig is eight world-frame beams at 45 degree spacing.
func DefaultConfig() Config {
	return Config{
		Angles:        append([]float64(nil), geometry.CompassHeadings[:]...),
		MaxRange:      60,
		ProbeDistance: 20,
	}
}

// Beam is one sample of a sweep.
type Beam struct {
	// Angle is the configured beam angle; Heading is the same direction in the
	// world frame. They differ only for heading-relative sensors.
	Angle   float64 `json:"angle"`
	Heading float64 `json:"heading"`
	// Range is the raw distance to the first surface, capped at the max range.
	Range float64 `json:"range"`
	// Distance is Range divided by the max range, in [0, 1].
	Distance float64 `json:"distance"`
	// Blocked means a step along this beam would not stay clear.
	Blocked bool `json:"blocked"`
}

// Reading is the ordered result of one sweep.
type Reading struct {
	Origin geometry.Vector2D `json:"origin"`
	Beams  []Beam            `json:"beams"`
}

// Allowed returns the world-frame headings of the unblocked beams in beam order.
// An empty result means no safe direction exists.
func (r *Reading) Allowed() []float64 {
	if r == nil {
		return nil
	}
	out := make([]float64, 0, len(r.Beams))
	for _, b := range r.Beams {
		if !b.Blocked {
			out = append(out, b.Heading)
		}
	}
	return out
}

// Lookup finds the beam pointing along heading, if the sensor has one.
func (r *Reading) Lookup(heading float64) (Beam, bool) {
	if r == nil {
		return Beam{}, false
	}
	for _, b := range r.Beams {
		if geometry.SameHeading(b.Heading, heading) {
			return b, true
		}
	}
	return Beam{}, false
}

// Distances returns the normalized beam distances in beam order.
func (r *Reading) Distances() []float64 {
	out := make([]float64, len(r.Beams))
	for i, b := range r.Beams {
		out[i] = b.Distance
	}
	return out
}

// Sonar performs sweeps. It holds no per-tick state.
type Sonar struct {
	cfg Config
}

func New(cfg Config) (*Sonar, error) {
	if len(cfg.Angles) == 0 {
		return nil, fmt.Errorf("%w: at least one beam angle is required", ErrInvalidConfig)
	}
	for _, a := range cfg.Angles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: beam angle %v is not finite", ErrInvalidConfig, a)
		}
	}
	if !(cfg.MaxRange > 0) || math.IsInf(cfg.MaxRange, 0) {
		return nil, fmt.Errorf("%w: max range must be positive, got %v", ErrInvalidConfig, cfg.MaxRange)
	}
	if math.IsNaN(cfg.ProbeDistance) || cfg.ProbeDistance < 0 {
		return nil, fmt.Errorf("%w: probe distance must be non-negative, got %v", ErrInvalidConfig, cfg.ProbeDistance)
	}
	cfg.Angles = append([]float64(nil), cfg.Angles...)
	return &Sonar{cfg: cfg}, nil
}

func (s *Sonar) Config() Config {
	cfg := s.cfg
	cfg.Angles = append([]float64(nil), s.cfg.Angles...)
	return cfg
}

// Sweep samples every beam from pose. Range comes from an exact ray cast;
// Blocked runs the same swept clearance test the engine applies before it
// commits a step, so a heading reported as allowed is one the engine accepts.
func (s *Sonar) Sweep(pose robot.Pose, w *world.World, margin float64) Reading {
	origin := pose.Position
	reading := Reading{Origin: origin, Beams: make([]Beam, len(s.cfg.Angles))}
	for i, angle := range s.cfg.Angles {
		heading := geometry.NormalizeDegrees(angle)
		if s.cfg.RelativeToHeading {
			heading = geometry.NormalizeDegrees(pose.Heading + angle)
		}
		rng := w.RayDistance(origin, heading, s.cfg.MaxRange)
		probeEnd := origin.Add(geometry.FromHeading(heading).Mul(s.cfg.ProbeDistance))
		reading.Beams[i] = Beam{
			Angle:    angle,
			Heading:  heading,
			Range:    rng,
			Distance: rng / s.cfg.MaxRange,
			Blocked:  !w.IsPathClear(origin, probeEnd, margin),
		}
	}
	return reading
}
