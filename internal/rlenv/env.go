// Package rlenv exposes the simulator through a Gym-style Reset/Step loop so
// reinforcement-learning code can train against the same world model, sensor
// and collision rules the navigation policies use.
package rlenv

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// Discrete actions.
const (
	TurnLeft = iota
	Straight
	TurnRight
)

// NumDiscreteActions is the size of the discrete action space.
const NumDiscreteActions = 3

// ObservationSize is 8 sonar distances, the goal unit vector, cos/sin of the
// heading and the two normalized velocities.
const ObservationSize = 14

const (
	goalReward      = 1.0
	collisionReward = -1.0
	progressScale   = 100.0
	stepPenalty     = 0.01
)

var ErrInvalidConfig = errors.New("invalid rl environment config")

// Observation is the flat feature vector handed to the learner.
type Observation [ObservationSize]float64

// Action carries either a discrete index or a continuous [linear, angular]
// pair in [-1, 1]. Which field is read depends on the environment mode.
type Action struct {
	Discrete int
	Linear   float64
	Angular  float64
}

// Info carries diagnostics alongside each observation.
type Info struct {
	Position       geometry.Vector2D `json:"position"`
	Heading        float64           `json:"heading"`
	DistanceToGoal float64           `json:"distance_to_goal"`
	Step           int               `json:"step"`
	Collision      bool              `json:"collision"`
	GoalReached    bool              `json:"goal_reached"`
}

// Config describes the agent's body and action space.
type Config struct {
	Mode     navigation.ActionMode
	MaxSteps int
	Margin   float64
	Start    robot.Pose
	// MinLinear/MaxLinear and MinAngular/MaxAngular are the velocity ranges
	// that [-1, 1] actions map onto. Angular velocity is in degrees per tick.
	MinLinear  float64
	MaxLinear  float64
	MinAngular float64
	MaxAngular float64
	Sensor     sensor.Config
}

// DefaultConfig is the stock training setup: eight heading-relative
// beams of range 120, linear speed up to 20, turns up to 45 degrees.
func DefaultConfig() Config {
	sc := sensor.DefaultConfig()
	sc.MaxRange = 120
	sc.RelativeToHeading = true
	return Config{
		Mode:       navigation.ModeDiscrete,
		MaxSteps:   500,
		Margin:     10,
		Start:      robot.Pose{Position: geometry.Vec(350, 200)},
		MinLinear:  0,
		MaxLinear:  20,
		MinAngular: -45,
		MaxAngular: 45,
		Sensor:     sc,
	}
}

func (c Config) validate() error {
	if c.Mode != navigation.ModeDiscrete && c.Mode != navigation.ModeContinuous {
		return fmt.Errorf("%w: mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: max steps must be at least 1", ErrInvalidConfig)
	}
	if !(c.MaxLinear > c.MinLinear) || !(c.MaxAngular > c.MinAngular) {
		return fmt.Errorf("%w: velocity ranges must be non-empty", ErrInvalidConfig)
	}
	if len(c.Sensor.Angles) != 8 {
		return fmt.Errorf("%w: observation layout needs exactly 8 beams, got %d", ErrInvalidConfig, len(c.Sensor.Angles))
	}
	return nil
}

// Env is a single-agent environment. It is not safe for concurrent use.
type Env struct {
	cfg    Config
	world  *world.World
	sonar  *sensor.Sonar
	logger *zap.Logger

	state    robot.State
	step     int
	prevDist float64
	done     bool
}

func New(cfg Config, w *world.World, logger *zap.Logger) (*Env, error) {
	if w == nil {
		return nil, errors.New("world cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sonar, err := sensor.New(cfg.Sensor)
	if err != nil {
		return nil, fmt.Errorf("failed to build sensor: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	env := &Env{cfg: cfg, world: w, sonar: sonar, logger: logger.Named("rlenv")}
	env.Reset()
	return env, nil
}

// Reset returns the agent to the start pose at rest.
func (e *Env) Reset() (Observation, Info) {
	e.state = robot.NewState(e.cfg.Start)
	e.step = 0
	e.done = false
	e.prevDist = e.world.DistanceToTarget(e.state.Position)
	return e.observe(), e.info(false, false)
}

// Step applies one action. The heading turns first, then the agent moves;
// a move that would not stay clear is refused, ends the episode and costs
// the collision reward. Reaching the goal pays the goal reward. Otherwise the
// reward is the progress toward the goal over 100 minus a small step cost.
// Once terminated, further steps return a zero reward until Reset.
func (e *Env) Step(a Action) (Observation, float64, bool, bool, Info) {
	if e.done {
		return e.observe(), 0, true, e.step >= e.cfg.MaxSteps, e.info(false, false)
	}
	e.step++

	linear, angular := e.velocities(a)
	next := robot.Advance(e.state, linear, angular)

	var (
		reward     float64
		terminated bool
		collided   bool
		reached    bool
	)
	if !e.world.IsPathClear(e.state.Position, next.Position, e.cfg.Margin) {
		// The body turns in place; the translation is refused.
		next.Position = e.state.Position
		e.state = next
		reward, terminated, collided = collisionReward, true, true
	} else {
		e.state = next
		dist := e.world.DistanceToTarget(e.state.Position)
		if e.world.IsGoalReached(e.state.Position) {
			reward, terminated, reached = goalReward, true, true
		} else {
			reward = (e.prevDist-dist)/progressScale - stepPenalty
			e.prevDist = dist
		}
	}
	truncated := e.step >= e.cfg.MaxSteps
	e.done = terminated || truncated

	e.logger.Debug("Step",
		zap.Int("step", e.step),
		zap.Float64("reward", reward),
		zap.Bool("collision", collided),
		zap.Bool("goal", reached),
	)
	return e.observe(), reward, terminated, truncated, e.info(collided, reached)
}

// velocities maps an action onto linear and angular velocity. Discrete turns
// run at half speed. Unknown discrete indices drive straight; continuous
// values are clamped to [-1, 1].
func (e *Env) velocities(a Action) (float64, float64) {
	if e.cfg.Mode == navigation.ModeContinuous {
		lin := denormalize(clampUnit(a.Linear), e.cfg.MinLinear, e.cfg.MaxLinear)
		ang := denormalize(clampUnit(a.Angular), e.cfg.MinAngular, e.cfg.MaxAngular)
		return lin, ang
	}
	switch a.Discrete {
	case TurnLeft:
		return e.cfg.MaxLinear * 0.5, e.cfg.MaxAngular
	case TurnRight:
		return e.cfg.MaxLinear * 0.5, e.cfg.MinAngular
	default:
		return e.cfg.MaxLinear, 0
	}
}

func (e *Env) observe() Observation {
	var obs Observation
	reading := e.sonar.Sweep(e.state.Pose, e.world, 0)
	for i, b := range reading.Beams {
		obs[i] = math.Min(b.Distance, 1)
	}

	toGoal := e.world.Target().Center.Sub(e.state.Position)
	scale := math.Max(toGoal.Mag(), 1)
	obs[8] = toGoal.X / scale
	obs[9] = toGoal.Y / scale

	dir := geometry.FromHeading(e.state.Heading)
	obs[10] = dir.X
	obs[11] = dir.Y

	obs[12] = normalize(e.state.LinearVelocity, e.cfg.MinLinear, e.cfg.MaxLinear)
	obs[13] = normalize(e.state.AngularVelocity, e.cfg.MinAngular, e.cfg.MaxAngular)
	return obs
}

func (e *Env) info(collided, reached bool) Info {
	return Info{
		Position:       e.state.Position,
		Heading:        e.state.Heading,
		DistanceToGoal: e.world.DistanceToTarget(e.state.Position),
		Step:           e.step,
		Collision:      collided,
		GoalReached:    reached,
	}
}

func (e *Env) State() robot.State { return e.state }

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// normalize maps [min, max] onto [-1, 1].
func normalize(v, min, max float64) float64 {
	return 2*(v-min)/(max-min) - 1
}

// denormalize maps [-1, 1] onto [min, max].
func denormalize(v, min, max float64) float64 {
	return (v+1)*(max-min)/2 + min
}
