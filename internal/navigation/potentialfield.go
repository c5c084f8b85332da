package navigation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// PotentialFieldParams tunes the force model and the stuck heuristics.
type PotentialFieldParams struct {
	// AttractiveGain scales the unit pull toward the target.
	AttractiveGain float64 `json:"attractive_gain" mapstructure:"attractive_gain" yaml:"attractive_gain"`
	// RepulsiveGain is k in k/d^2.
	RepulsiveGain float64 `json:"repulsive_gain" mapstructure:"repulsive_gain" yaml:"repulsive_gain"`
	// InfluenceRadius is the surface distance beyond which an obstacle is ignored.
	InfluenceRadius float64 `json:"influence_radius" mapstructure:"influence_radius" yaml:"influence_radius"`
	// MinDistance floors d so the repulsion stays finite at the surface.
	MinDistance float64 `json:"min_distance" mapstructure:"min_distance" yaml:"min_distance"`
	// TangentialGain is the baseline sideways push as a fraction of each repulsion.
	TangentialGain float64 `json:"tangential_gain" mapstructure:"tangential_gain" yaml:"tangential_gain"`
	// StallThreshold is the attractive+repulsive magnitude under which the
	// tangential push takes over.
	StallThreshold float64 `json:"stall_threshold" mapstructure:"stall_threshold" yaml:"stall_threshold"`
	// EscapeGain sets the dominant tangential magnitude, in units of AttractiveGain.
	EscapeGain float64 `json:"escape_gain" mapstructure:"escape_gain" yaml:"escape_gain"`

	StuckWindow   int     `json:"stuck_window" mapstructure:"stuck_window" yaml:"stuck_window"`
	StuckEpsilon  float64 `json:"stuck_epsilon" mapstructure:"stuck_epsilon" yaml:"stuck_epsilon"`
	MaxStuckTicks int     `json:"max_stuck_ticks" mapstructure:"max_stuck_ticks" yaml:"max_stuck_ticks"`
}

func DefaultPotentialFieldParams() PotentialFieldParams {
	return PotentialFieldParams{
		AttractiveGain:  1.0,
		RepulsiveGain:   500,
		InfluenceRadius: 100,
		MinDistance:     1,
		TangentialGain:  0.3,
		StallThreshold:  0.2,
		EscapeGain:      2.0,
		StuckWindow:     8,
		StuckEpsilon:    5,
		MaxStuckTicks:   12,
	}
}

func (p PotentialFieldParams) Validate() error {
	nonNegative := map[string]float64{
		"attractive_gain": p.AttractiveGain,
		"repulsive_gain":  p.RepulsiveGain,
		"tangential_gain": p.TangentialGain,
		"stall_threshold": p.StallThreshold,
		"stuck_epsilon":   p.StuckEpsilon,
	}
	for name, v := range nonNegative {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidParams, name, v)
		}
	}
	positive := map[string]float64{
		"influence_radius": p.InfluenceRadius,
		"min_distance":     p.MinDistance,
		"escape_gain":      p.EscapeGain,
	}
	for name, v := range positive {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParams, name, v)
		}
	}
	if p.StuckWindow < 1 {
		return fmt.Errorf("%w: stuck_window must be at least 1, got %d", ErrInvalidParams, p.StuckWindow)
	}
	if p.MaxStuckTicks < 1 {
		return fmt.Errorf("%w: max_stuck_ticks must be at least 1, got %d", ErrInvalidParams, p.MaxStuckTicks)
	}
	return nil
}

// Forces is the decomposed field at one position.
type Forces struct {
	Attractive geometry.Vector2D `json:"attractive" mapstructure:"attractive" yaml:"attractive"`
	Repulsive  geometry.Vector2D `json:"repulsive" mapstructure:"repulsive" yaml:"repulsive"`
	Tangential geometry.Vector2D `json:"tangential" mapstructure:"tangential" yaml:"tangential"`
	// Boosted is set when the tangential term was rescaled to dominate.
	Boosted bool `json:"boosted" mapstructure:"boosted" yaml:"boosted"`
	// Near counts obstacles inside the influence radius.
	Near int `json:"near" mapstructure:"near" yaml:"near"`
}

func (f Forces) Resultant() geometry.Vector2D {
	return f.Attractive.Add(f.Repulsive).Add(f.Tangential)
}

// PotentialField follows the sum of an attraction to the target, inverse-square
// repulsion from nearby obstacles and a tangential push that slides the robot
// around them. A Memory watches for lack of progress; once stuck, the sideways
// push dominates, and after MaxStuckTicks a random escape heading is forced.
type PotentialField struct {
	params PotentialFieldParams
	mode   ActionMode
	rng    *rand.Rand
	memory *Memory

	last     float64
	hasLast  bool
	rejected bool
	escapes  int
}

func NewPotentialField(params PotentialFieldParams, mode ActionMode, rng *rand.Rand) (*PotentialField, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeDiscrete
	}
	if mode != ModeDiscrete && mode != ModeContinuous {
		return nil, fmt.Errorf("%w: action mode %q", ErrInvalidParams, mode)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &PotentialField{
		params: params,
		mode:   mode,
		rng:    rng,
		memory: NewMemory(params.StuckWindow, params.StuckEpsilon),
	}, nil
}

func (pf *PotentialField) Kind() Kind { return KindPotentialField }

func (pf *PotentialField) Name() string {
	if pf.mode == ModeContinuous {
		return "Potential field (continuous)"
	}
	return "Potential field"
}

func (pf *PotentialField) Reset() {
	pf.memory.Reset()
	pf.last, pf.hasLast, pf.rejected = 0, false, false
	pf.escapes = 0
}

// OnCollision marks the previous proposal as refused so the next one steers off it.
func (pf *PotentialField) OnCollision() {
	pf.rejected = true
}

func (pf *PotentialField) State() StuckState { return pf.memory.State() }

// Escapes counts the forced escape headings since the last Reset.
func (pf *PotentialField) Escapes() int { return pf.escapes }

func (pf *PotentialField) Memory() *Memory { return pf.memory }

func (pf *PotentialField) Decide(pose robot.Pose, w *world.World, reading *sensor.Reading) float64 {
	state := pf.memory.Record(pose.Position)
	if state == StateStuck && pf.memory.StuckTicks() >= pf.params.MaxStuckTicks {
		heading := pf.escapeHeading(reading)
		pf.memory.Reset()
		pf.escapes++
		return pf.propose(heading)
	}

	target := w.Target().Center
	f := pf.Forces(pose.Position, target, w, state == StateStuck)

	var heading float64
	switch res := f.Resultant(); {
	case f.Near == 0 && !f.Boosted && !pose.Position.Sub(target).IsZero():
		heading = geometry.Bearing(pose.Position, target)
	case res.IsZero():
		heading = pose.Heading
	default:
		heading = res.Heading()
	}

	avoid := pf.hasLast && (state == StateStuck || pf.rejected)
	sense := turnSense(f)

	if pf.mode == ModeContinuous {
		if avoid && geometry.AngularDistance(heading, pf.last) < geometry.CompassStep/2 {
			heading = geometry.NormalizeDegrees(pf.last + sense*geometry.CompassStep)
		}
		return pf.propose(heading)
	}

	snapped := geometry.SnapToCompass(heading)
	if avoid && geometry.SameHeading(snapped, pf.last) {
		snapped = geometry.NormalizeDegrees(snapped + sense*geometry.CompassStep)
	}
	if beam, ok := reading.Lookup(snapped); ok && beam.Blocked {
		if allowed := reading.Allowed(); len(allowed) > 0 {
			snapped = nearestHeading(allowed, heading, pose.Heading)
		} else {
			snapped = reverse(pose.Heading)
		}
	}
	return pf.propose(snapped)
}

// Forces evaluates the field at pos. stuck forces the tangential boost.
func (pf *PotentialField) Forces(pos, target geometry.Vector2D, w *world.World, stuck bool) Forces {
	p := pf.params
	toTarget := target.Sub(pos).Normalize()
	f := Forces{Attractive: toTarget.Mul(p.AttractiveGain)}

	var tangential geometry.Vector2D
	for _, ob := range w.ObstaclesNear(pos, p.InfluenceRadius) {
		cl := ob.Clearance(pos)
		if cl.Distance > p.InfluenceRadius {
			continue
		}
		d := math.Max(cl.Distance, p.MinDistance)
		rep := cl.Away.Mul(p.RepulsiveGain / (d * d))
		f.Repulsive = f.Repulsive.Add(rep)

		// Rotate the push 90 degrees toward whichever side keeps the target ahead.
		side := rep.Perp()
		if side.Dot(toTarget) < 0 {
			side = side.Mul(-1)
		}
		tangential = tangential.Add(side.Mul(p.TangentialGain))
		f.Near++
	}

	if stuck || f.Attractive.Add(f.Repulsive).Mag() < p.StallThreshold {
		dir := tangential.Normalize()
		if dir.IsZero() {
			dir = f.Repulsive.Perp().Normalize()
		}
		if dir.IsZero() {
			dir = f.Attractive.Perp().Normalize()
		}
		tangential = dir.Mul(p.EscapeGain * p.AttractiveGain)
		f.Boosted = true
	}
	f.Tangential = tangential
	return f
}

// escapeHeading picks a random allowed compass heading other than the last
// proposal. Without a usable reading any compass heading qualifies.
func (pf *PotentialField) escapeHeading(reading *sensor.Reading) float64 {
	pool := reading.Allowed()
	if len(pool) == 0 {
		pool = geometry.CompassHeadings[:]
	}
	candidates := make([]float64, 0, len(pool))
	for _, h := range pool {
		if pf.hasLast && geometry.SameHeading(h, pf.last) {
			continue
		}
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		candidates = pool
	}
	return candidates[pf.rng.Intn(len(candidates))]
}

func (pf *PotentialField) propose(heading float64) float64 {
	pf.last, pf.hasLast = heading, true
	pf.rejected = false
	return heading
}

// turnSense is +1 when the tangential push rotates the resultant
// counter-clockwise, -1 otherwise.
func turnSense(f Forces) float64 {
	if f.Resultant().Cross(f.Tangential) < 0 {
		return -1
	}
	return 1
}
