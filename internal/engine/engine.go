// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// Outcome is how an episode ended. Termination is never an error.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeGoalReached Outcome = "goal_reached"
	OutcomeCollision   Outcome = "collision"
	OutcomeStepLimit   Outcome = "step_limit"
	OutcomeCanceled    Outcome = "canceled"
)

// Config holds the per-episode kinematic and termination settings.
type Config struct {
	Start robot.Pose
	// Margin is the robot radius used for every clearance query.
	Margin     float64
	StepLength float64
	Mode       navigation.ActionMode
	// MaxLinear and MaxAngular bound continuous motion per tick.
	MaxLinear  float64
	MaxAngular float64

	MaxSteps        int
	StopOnCollision bool
	// TickRate paces Run in ticks per second. Zero runs unpaced.
	TickRate float64
}

// DefaultConfig is the stock robot: radius 10, step 20, start (350,200).
func DefaultConfig() Config {
	return Config{
		Start:           robot.Pose{Position: geometry.Vec(350, 200)},
		Margin:          10,
		StepLength:      20,
		Mode:            navigation.ModeDiscrete,
		MaxLinear:       20,
		MaxAngular:      45,
		MaxSteps:        500,
		StopOnCollision: true,
	}
}

var ErrInvalidConfig = errors.New("invalid engine config")

func (c Config) Validate() error {
	switch {
	case c.Margin < 0 || math.IsNaN(c.Margin):
		return fmt.Errorf("%w: margin must be non-negative", ErrInvalidConfig)
	case !(c.StepLength > 0):
		return fmt.Errorf("%w: step length must be positive", ErrInvalidConfig)
	case c.MaxSteps < 1:
		return fmt.Errorf("%w: max steps must be at least 1", ErrInvalidConfig)
	case c.TickRate < 0:
		return fmt.Errorf("%w: tick rate must be non-negative", ErrInvalidConfig)
	case !c.Start.Position.IsFinite():
		return fmt.Errorf("%w: start position is not finite", ErrInvalidConfig)
	}
	if c.Mode == navigation.ModeContinuous && (!(c.MaxLinear > 0) || c.MaxAngular < 0) {
		return fmt.Errorf("%w: continuous mode needs a positive max linear velocity", ErrInvalidConfig)
	}
	return nil
}

// TickResult describes one tick.
type TickResult struct {
	Tick     int               `json:"tick"`
	Pose     robot.Pose        `json:"pose"`
	Proposed float64           `json:"proposed_heading"`
	Moved    bool              `json:"moved"`
	Collided bool              `json:"collided"`
	// Turned is set when a capped continuous turn was rotated in place
	// because the move along the capped heading was not clear.
	Turned   bool              `json:"turned_in_place,omitempty"`
	Distance float64           `json:"distance_to_target"`
	Reading  *sensor.Reading   `json:"reading,omitempty"`
	Outcome  Outcome           `json:"outcome"`
	Next     geometry.Vector2D `json:"attempted"`
}

// Result summarises a finished (or interrupted) episode.
type Result struct {
	Policy        navigation.Kind     `json:"policy"`
	Outcome       Outcome             `json:"outcome"`
	Steps         int                 `json:"steps"`
	Collisions    int                 `json:"collisions"`
	PathLength    float64             `json:"path_length"`
	FinalDistance float64             `json:"final_distance"`
	Escapes       int                 `json:"escapes"`
	Duration      time.Duration       `json:"duration"`
	Trace         []geometry.Vector2D `json:"trace,omitempty"`
}

// escapeCounter is implemented by policies that force escape headings.
type escapeCounter interface {
	Escapes() int
}

// Engine runs one episode at a time, single-threaded. It owns the robot state,
// the path trace and the outcome; the world is shared read-only.
type Engine struct {
	cfg    Config
	world  *world.World
	sonar  *sensor.Sonar
	policy navigation.Policy
	logger *zap.Logger

	state      robot.State
	ticks      int
	collisions int
	pathLength float64
	trace      []geometry.Vector2D
	outcome    Outcome
}

// New wires an engine. A nil sonar disables sensing; policies then see a nil reading.
func New(cfg Config, w *world.World, sonar *sensor.Sonar, policy navigation.Policy, logger *zap.Logger) (*Engine, error) {
	if w == nil {
		return nil, errors.New("world cannot be nil")
	}
	if policy == nil {
		return nil, errors.New("policy cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w.CheckCollision(cfg.Start.Position, cfg.Margin) {
		return nil, fmt.Errorf("%w: start %+v collides with an obstacle", ErrInvalidConfig, cfg.Start.Position)
	}
	e := &Engine{
		cfg:    cfg,
		world:  w,
		sonar:  sonar,
		policy: policy,
		logger: logger.Named("engine").With(zap.String("policy", string(policy.Kind()))),
	}
	e.Reset()
	return e, nil
}

// Reset restores the start pose, clears the trace and resets the policy.
func (e *Engine) Reset() {
	e.state = robot.NewState(e.cfg.Start)
	e.ticks, e.collisions, e.pathLength = 0, 0, 0
	e.trace = []geometry.Vector2D{e.state.Position}
	e.outcome = OutcomeRunning
	e.policy.Reset()
	if e.world.IsGoalReached(e.state.Position) {
		e.outcome = OutcomeGoalReached
	}
}

func (e *Engine) State() robot.State         { return e.state }
func (e *Engine) World() *world.World        { return e.world }
func (e *Engine) Policy() navigation.Policy  { return e.policy }
func (e *Engine) Outcome() Outcome           { return e.outcome }
func (e *Engine) Done() bool                 { return e.outcome != OutcomeRunning }
func (e *Engine) Trace() []geometry.Vector2D { return append([]geometry.Vector2D(nil), e.trace...) }

// Tick runs sweep, decide and a collision-checked step. After the episode has
// ended it does nothing and reports the final outcome.
func (e *Engine) Tick() TickResult {
	if e.Done() {
		return TickResult{Tick: e.ticks, Pose: e.state.Pose, Distance: e.world.DistanceToTarget(e.state.Position), Outcome: e.outcome}
	}

	var reading *sensor.Reading
	if e.sonar != nil {
		r := e.sonar.Sweep(e.state.Pose, e.world, e.cfg.Margin)
		reading = &r
	}
	heading := e.policy.Decide(e.state.Pose, e.world, reading)

	next, turn, capped := e.propose(heading)
	res := TickResult{Tick: e.ticks + 1, Proposed: heading, Reading: reading, Next: next.Position}

	pathClear := e.world.IsPathClear(e.state.Position, next.Position, e.cfg.Margin)
	switch {
	case pathClear:
		e.pathLength += e.state.Position.Dist(next.Position)
		e.state = next
		e.trace = append(e.trace, next.Position)
		res.Moved = true
		if e.world.IsGoalReached(next.Position) {
			e.outcome = OutcomeGoalReached
		}
	case capped:
		// The capped heading was never checked by the policy; turn in place
		// toward the chosen heading instead of moving.
		e.state = robot.Advance(e.state, 0, turn)
		res.Turned = true
	default:
		e.collisions++
		res.Collided = true
		if obs, ok := e.policy.(navigation.CollisionObserver); ok {
			obs.OnCollision()
		}
		if e.cfg.StopOnCollision {
			e.outcome = OutcomeCollision
		}
		e.logger.Debug("Step rejected", zap.Int("tick", res.Tick), zap.Float64("heading", heading))
	}

	e.ticks++
	if e.outcome == OutcomeRunning && e.ticks >= e.cfg.MaxSteps {
		e.outcome = OutcomeStepLimit
	}

	res.Pose = e.state.Pose
	res.Distance = e.world.DistanceToTarget(e.state.Position)
	res.Outcome = e.outcome
	e.logger.Debug("Tick",
		zap.Int("tick", res.Tick),
		zap.Float64("x", res.Pose.Position.X),
		zap.Float64("y", res.Pose.Position.Y),
		zap.Float64("heading", heading),
		zap.Bool("moved", res.Moved),
	)
	return res
}

// propose turns a heading into the candidate next state without committing it.
// In continuous mode it also returns the applied turn and whether the turn was
// capped at MaxAngular, in which case the move does not follow heading.
func (e *Engine) propose(heading float64) (robot.State, float64, bool) {
	if e.cfg.Mode == navigation.ModeContinuous {
		want := geometry.SignedAngle(heading - e.state.Heading)
		turn := math.Max(-e.cfg.MaxAngular, math.Min(e.cfg.MaxAngular, want))
		return robot.Advance(e.state, e.cfg.MaxLinear, turn), turn, turn != want
	}
	return robot.State{Pose: robot.ApplyStep(e.state.Pose, heading, e.cfg.StepLength)}, 0, false
}

// Run ticks until the episode ends or ctx is canceled. Cancellation is only
// observed between ticks. onTick, if set, sees every tick in order.
func (e *Engine) Run(ctx context.Context, onTick func(TickResult)) Result {
	start := time.Now()

	var limiter *rate.Limiter
	if e.cfg.TickRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.cfg.TickRate), 1)
	}

	for !e.Done() {
		if ctx.Err() != nil {
			e.outcome = OutcomeCanceled
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				e.outcome = OutcomeCanceled
				break
			}
		}
		res := e.Tick()
		if onTick != nil {
			onTick(res)
		}
	}

	result := e.Result()
	result.Duration = time.Since(start)
	e.logger.Info("Episode finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("steps", result.Steps),
		zap.Int("collisions", result.Collisions),
		zap.Float64("path_length", result.PathLength),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// Result snapshots the episode so far.
func (e *Engine) Result() Result {
	r := Result{
		Policy:        e.policy.Kind(),
		Outcome:       e.outcome,
		Steps:         e.ticks,
		Collisions:    e.collisions,
		PathLength:    e.pathLength,
		FinalDistance: e.world.DistanceToTarget(e.state.Position),
		Trace:         e.Trace(),
	}
	if ec, ok := e.policy.(escapeCounter); ok {
		r.Escapes = ec.Escapes()
	}
	return r
}
