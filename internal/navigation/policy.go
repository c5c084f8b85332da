// Package navigation turns a robot pose, the world and an optional sensor
// reading into a proposed heading. Exactly four policies exist; New builds
// them by Kind.
package navigation

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

var (
	ErrUnknownPolicy = errors.New("unknown navigation policy")
	ErrInvalidParams = errors.New("invalid navigation parameters")
)

// Kind names a policy variant.
type Kind string

const (
	KindReactiveRandom Kind = "reactive-random"
	KindReactiveTarget Kind = "reactive-target"
	KindWallFollower   Kind = "wall-follower"
	KindPotentialField Kind = "potential-field"
)

// Kinds lists every policy in a stable order.
func Kinds() []Kind {
	return []Kind{KindReactiveRandom, KindReactiveTarget, KindWallFollower, KindPotentialField}
}

// ParseKind accepts the canonical names case-insensitively, with underscores
// allowed in place of dashes.
func ParseKind(s string) (Kind, error) {
	norm := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	for _, k := range Kinds() {
		if k == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// ActionMode selects between compass-snapped and free headings.
type ActionMode string

const (
	ModeDiscrete   ActionMode = "discrete"
	ModeContinuous ActionMode = "continuous"
)

// ParseActionMode accepts "discrete" or "continuous".
func ParseActionMode(s string) (ActionMode, error) {
	switch ActionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDiscrete:
		return ModeDiscrete, nil
	case ModeContinuous:
		return ModeContinuous, nil
	}
	return "", fmt.Errorf("%w: action mode %q", ErrInvalidParams, s)
}

// Policy proposes the next heading in degrees. Decide may mutate policy-owned
// memory and must not be called concurrently on one instance. A nil reading
// means the sensor is disabled.
type Policy interface {
	Kind() Kind
	Name() string
	Decide(pose robot.Pose, w *world.World, reading *sensor.Reading) float64
	Reset()
}

// CollisionObserver is implemented by policies that want to hear about
// rejected steps.
type CollisionObserver interface {
	OnCollision()
}

// Params carries the tunables of every policy.
type Params struct {
	Mode           ActionMode
	PotentialField PotentialFieldParams
}

// DefaultParams returns discrete mode with the stock potential-field gains.
func DefaultParams() Params {
	return Params{
		Mode:           ModeDiscrete,
		PotentialField: DefaultPotentialFieldParams(),
	}
}

// New builds the policy for kind. A nil rng gets a fixed seed so runs stay
// reproducible.
func New(kind Kind, params Params, rng *rand.Rand) (Policy, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	switch kind {
	case KindReactiveRandom:
		return NewReactiveRandom(rng, params.Mode), nil
	case KindReactiveTarget:
		return NewReactiveTarget(params.Mode), nil
	case KindWallFollower:
		return NewWallFollower(), nil
	case KindPotentialField:
		pf, err := NewPotentialField(params.PotentialField, params.Mode, rng)
		if err != nil {
			return nil, err
		}
		return pf, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, string(kind))
	}
}

func reverse(heading float64) float64 {
	return geometry.NormalizeDegrees(heading + 180)
}

// nearestHeading picks the candidate closest to desired. Ties go to the
// smaller turn away from current, then to the lower degree value.
func nearestHeading(candidates []float64, desired, current float64) float64 {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best, desired, current) {
			best = c
		}
	}
	return best
}

const tieTolerance = 1e-6

func better(c, best, desired, current float64) bool {
	dc, db := geometry.AngularDistance(c, desired), geometry.AngularDistance(best, desired)
	if dc < db-tieTolerance {
		return true
	}
	if dc > db+tieTolerance {
		return false
	}
	tc, tb := geometry.AngularDistance(c, current), geometry.AngularDistance(best, current)
	if tc < tb-tieTolerance {
		return true
	}
	if tc > tb+tieTolerance {
		return false
	}
	return geometry.NormalizeDegrees(c) < geometry.NormalizeDegrees(best)
}
