// File: internal/config/navigation_config.go
// This file defines the simulation side of the configuration: the arena, the
// robot body, the target, the obstacle layout, the sonar and the navigation
// policy. EpisodeSetup and RLEnv turn it into the recipes the engine and the
// RL environment consume.
package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/navsim/internal/engine"
	"github.com/xkilldash9x/navsim/internal/geometry"
	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/rlenv"
	"github.com/xkilldash9x/navsim/internal/robot"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// ArenaConfig is the rectangular workspace.
type ArenaConfig struct {
	Width         float64 `mapstructure:"width" yaml:"width"`
	Height        float64 `mapstructure:"height" yaml:"height"`
	Walls         bool    `mapstructure:"walls" yaml:"walls"`
	WallThickness float64 `mapstructure:"wall_thickness" yaml:"wall_thickness"`
}

// RobotConfig is the robot body and its kinematic limits. Angles are degrees.
type RobotConfig struct {
	Radius             float64 `mapstructure:"radius" yaml:"radius"`
	StepLength         float64 `mapstructure:"step_length" yaml:"step_length"`
	StartX             float64 `mapstructure:"start_x" yaml:"start_x"`
	StartY             float64 `mapstructure:"start_y" yaml:"start_y"`
	StartHeading       float64 `mapstructure:"start_heading" yaml:"start_heading"`
	MaxLinearVelocity  float64 `mapstructure:"max_linear_velocity" yaml:"max_linear_velocity"`
	MaxAngularVelocity float64 `mapstructure:"max_angular_velocity" yaml:"max_angular_velocity"`
}

type TargetConfig struct {
	X               float64 `mapstructure:"x" yaml:"x"`
	Y               float64 `mapstructure:"y" yaml:"y"`
	Radius          float64 `mapstructure:"radius" yaml:"radius"`
	DetectionMargin float64 `mapstructure:"detection_margin" yaml:"detection_margin"`
}

type PointConfig struct {
	X float64 `mapstructure:"x" yaml:"x"`
	Y float64 `mapstructure:"y" yaml:"y"`
}

// CircleConfig places a circular obstacle. Radius is only read when
// obstacles.circle_radius is 0.
type CircleConfig struct {
	X      float64 `mapstructure:"x" yaml:"x"`
	Y      float64 `mapstructure:"y" yaml:"y"`
	Radius float64 `mapstructure:"radius" yaml:"radius"`
}

type PolygonConfig struct {
	Vertices []PointConfig `mapstructure:"vertices" yaml:"vertices"`
}

// ObstaclesConfig is the obstacle layout, circles first, then polygons.
type ObstaclesConfig struct {
	// CircleRadius, when positive, overrides every circle's own radius.
	CircleRadius float64         `mapstructure:"circle_radius" yaml:"circle_radius"`
	Circles      []CircleConfig  `mapstructure:"circles" yaml:"circles"`
	Polygons     []PolygonConfig `mapstructure:"polygons" yaml:"polygons"`
}

type SensorConfig struct {
	Enabled  bool      `mapstructure:"enabled" yaml:"enabled"`
	Angles   []float64 `mapstructure:"angles" yaml:"angles"`
	MaxRange float64   `mapstructure:"max_range" yaml:"max_range"`
	// ProbeDistance of 0 means the robot's step length.
	ProbeDistance     float64 `mapstructure:"probe_distance" yaml:"probe_distance"`
	RelativeToHeading bool    `mapstructure:"relative_to_heading" yaml:"relative_to_heading"`
}

type NavigationConfig struct {
	Policy     string `mapstructure:"policy" yaml:"policy"`
	ActionMode string `mapstructure:"action_mode" yaml:"action_mode"`
	// Seed of 0 asks the caller to pick a time-based seed.
	Seed           int64                           `mapstructure:"seed" yaml:"seed"`
	PotentialField navigation.PotentialFieldParams `mapstructure:"potential_field" yaml:"potential_field"`
}

// setSimulationDefaults describes the stock scenario: a 700x700 walled
// arena, a radius 10 robot starting at (350,200), one circle at (350,350) and
// the target at (600,600).
func setSimulationDefaults(v *viper.Viper) {
	// -- Arena --
	v.SetDefault("arena.width", 700.0)
	v.SetDefault("arena.height", 700.0)
	v.SetDefault("arena.walls", true)
	v.SetDefault("arena.wall_thickness", 10.0)

	// -- Robot --
	v.SetDefault("robot.radius", 10.0)
	v.SetDefault("robot.step_length", 20.0)
	v.SetDefault("robot.start_x", 350.0)
	v.SetDefault("robot.start_y", 200.0)
	v.SetDefault("robot.start_heading", 0.0)
	v.SetDefault("robot.max_linear_velocity", 20.0)
	v.SetDefault("robot.max_angular_velocity", 45.0)

	// -- Target --
	v.SetDefault("target.x", 600.0)
	v.SetDefault("target.y", 600.0)
	v.SetDefault("target.radius", 25.0)
	v.SetDefault("target.detection_margin", 20.0)

	// -- Obstacles --
	v.SetDefault("obstacles.circle_radius", 45.0)
	v.SetDefault("obstacles.circles", []map[string]interface{}{{"x": 350.0, "y": 350.0}})
	v.SetDefault("obstacles.polygons", []map[string]interface{}{})

	// -- Sensor --
	v.SetDefault("sensor.enabled", true)
	v.SetDefault("sensor.angles", append([]float64(nil), geometry.CompassHeadings[:]...))
	v.SetDefault("sensor.max_range", 60.0)
	v.SetDefault("sensor.probe_distance", 0.0)
	v.SetDefault("sensor.relative_to_heading", false)

	// -- Navigation --
	pf := navigation.DefaultPotentialFieldParams()
	v.SetDefault("navigation.policy", string(navigation.KindPotentialField))
	v.SetDefault("navigation.action_mode", string(navigation.ModeDiscrete))
	v.SetDefault("navigation.seed", 0)
	v.SetDefault("navigation.potential_field.attractive_gain", pf.AttractiveGain)
	v.SetDefault("navigation.potential_field.repulsive_gain", pf.RepulsiveGain)
	v.SetDefault("navigation.potential_field.influence_radius", pf.InfluenceRadius)
	v.SetDefault("navigation.potential_field.min_distance", pf.MinDistance)
	v.SetDefault("navigation.potential_field.tangential_gain", pf.TangentialGain)
	v.SetDefault("navigation.potential_field.stall_threshold", pf.StallThreshold)
	v.SetDefault("navigation.potential_field.escape_gain", pf.EscapeGain)
	v.SetDefault("navigation.potential_field.stuck_window", pf.StuckWindow)
	v.SetDefault("navigation.potential_field.stuck_epsilon", pf.StuckEpsilon)
	v.SetDefault("navigation.potential_field.max_stuck_ticks", pf.MaxStuckTicks)
}

func (a ArenaConfig) Validate() error {
	if !(a.Width > 0) || !(a.Height > 0) {
		return fmt.Errorf("width and height must be positive")
	}
	if a.WallThickness < 0 || 2*a.WallThickness >= math.Min(a.Width, a.Height) {
		return fmt.Errorf("wall_thickness must be non-negative and leave free space")
	}
	return nil
}

func (r RobotConfig) Validate() error {
	if r.Radius < 0 || math.IsNaN(r.Radius) {
		return fmt.Errorf("radius must be non-negative")
	}
	if !(r.StepLength > 0) {
		return fmt.Errorf("step_length must be positive")
	}
	if !(r.MaxLinearVelocity > 0) || r.MaxAngularVelocity < 0 {
		return fmt.Errorf("max_linear_velocity must be positive and max_angular_velocity non-negative")
	}
	return nil
}

func (t TargetConfig) Validate() error {
	if t.Radius < 0 || t.DetectionMargin < 0 {
		return fmt.Errorf("radius and detection_margin must be non-negative")
	}
	return nil
}

func (o ObstaclesConfig) Validate() error {
	if o.CircleRadius < 0 {
		return fmt.Errorf("circle_radius must be non-negative")
	}
	for i, c := range o.Circles {
		if o.CircleRadius == 0 && !(c.Radius > 0) {
			return fmt.Errorf("circle %d needs a positive radius when circle_radius is 0", i)
		}
	}
	for i, p := range o.Polygons {
		if len(p.Vertices) < 3 {
			return fmt.Errorf("polygon %d needs at least 3 vertices, got %d", i, len(p.Vertices))
		}
	}
	return nil
}

func (s SensorConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Angles) == 0 {
		return fmt.Errorf("angles must not be empty when the sensor is enabled")
	}
	if !(s.MaxRange > 0) {
		return fmt.Errorf("max_range must be positive")
	}
	if s.ProbeDistance < 0 {
		return fmt.Errorf("probe_distance must be non-negative")
	}
	return nil
}

func (n NavigationConfig) Validate() error {
	if _, err := navigation.ParseKind(n.Policy); err != nil {
		return err
	}
	if _, err := navigation.ParseActionMode(n.ActionMode); err != nil {
		return err
	}
	if err := n.PotentialField.Validate(); err != nil {
		return fmt.Errorf("potential_field: %w", err)
	}
	return nil
}

// WorldOptions maps the arena, target and obstacle settings onto world.Options.
func (c *Config) WorldOptions() world.Options {
	return world.Options{
		Width:           c.ArenaCfg.Width,
		Height:          c.ArenaCfg.Height,
		CircleRadius:    c.ObstaclesCfg.CircleRadius,
		DetectionMargin: c.TargetCfg.DetectionMargin,
		WallThickness:   c.ArenaCfg.WallThickness,
	}
}

// ObstacleList returns the configured obstacles in construction order, with
// the boundary walls first when enabled.
func (c *Config) ObstacleList() []world.Obstacle {
	obstacles := make([]world.Obstacle, 0, len(c.ObstaclesCfg.Circles)+len(c.ObstaclesCfg.Polygons))
	for _, ci := range c.ObstaclesCfg.Circles {
		obstacles = append(obstacles, world.Circle{Center: geometry.Vec(ci.X, ci.Y), Radius: ci.Radius})
	}
	for _, p := range c.ObstaclesCfg.Polygons {
		vertices := make([]geometry.Vector2D, len(p.Vertices))
		for i, v := range p.Vertices {
			vertices[i] = geometry.Vec(v.X, v.Y)
		}
		obstacles = append(obstacles, world.Polygon{Vertices: vertices})
	}
	if c.ArenaCfg.Walls {
		return world.WithBoundaryWalls(c.WorldOptions(), obstacles...)
	}
	return obstacles
}

// SonarConfig returns nil when the sensor is disabled. A zero probe distance
// becomes the length of one move: the step length, or the max linear velocity
// in continuous mode.
func (c *Config) SonarConfig() *sensor.Config {
	if !c.SensorCfg.Enabled {
		return nil
	}
	probe := c.SensorCfg.ProbeDistance
	if probe == 0 {
		probe = c.RobotCfg.StepLength
		if c.NavigationCfg.ActionMode == string(navigation.ModeContinuous) {
			probe = c.RobotCfg.MaxLinearVelocity
		}
	}
	return &sensor.Config{
		Angles:            append([]float64(nil), c.SensorCfg.Angles...),
		MaxRange:          c.SensorCfg.MaxRange,
		ProbeDistance:     probe,
		RelativeToHeading: c.SensorCfg.RelativeToHeading,
	}
}

func (c *Config) startPose() robot.Pose {
	return robot.Pose{
		Position: geometry.Vec(c.RobotCfg.StartX, c.RobotCfg.StartY),
		Heading:  geometry.NormalizeDegrees(c.RobotCfg.StartHeading),
	}
}

func (c *Config) target() world.Target {
	return world.Target{Center: geometry.Vec(c.TargetCfg.X, c.TargetCfg.Y), Radius: c.TargetCfg.Radius}
}

// EpisodeSetup assembles the recipe the engine builds each episode from.
func (c *Config) EpisodeSetup() (engine.Setup, error) {
	kind, err := navigation.ParseKind(c.NavigationCfg.Policy)
	if err != nil {
		return engine.Setup{}, err
	}
	mode, err := navigation.ParseActionMode(c.NavigationCfg.ActionMode)
	if err != nil {
		return engine.Setup{}, err
	}

	return engine.Setup{
		World:     c.WorldOptions(),
		Obstacles: c.ObstacleList(),
		Target:    c.target(),
		Sensor:    c.SonarConfig(),
		Policy:    kind,
		Params: navigation.Params{
			Mode:           mode,
			PotentialField: c.NavigationCfg.PotentialField,
		},
		Engine: engine.Config{
			Start:           c.startPose(),
			Margin:          c.RobotCfg.Radius,
			StepLength:      c.RobotCfg.StepLength,
			Mode:            mode,
			MaxLinear:       c.RobotCfg.MaxLinearVelocity,
			MaxAngular:      c.RobotCfg.MaxAngularVelocity,
			MaxSteps:        c.EngineCfg.MaxSteps,
			StopOnCollision: c.EngineCfg.StopOnCollision,
			TickRate:        c.EngineCfg.TickRate,
		},
	}, nil
}

// RLEnv builds the RL environment config. The observation layout fixes the
// sensor at eight heading-relative beams; only the range is taken from the
// sensor settings.
func (c *Config) RLEnv() (rlenv.Config, error) {
	mode, err := navigation.ParseActionMode(c.NavigationCfg.ActionMode)
	if err != nil {
		return rlenv.Config{}, err
	}
	cfg := rlenv.DefaultConfig()
	cfg.Mode = mode
	cfg.MaxSteps = c.EngineCfg.MaxSteps
	cfg.Margin = c.RobotCfg.Radius
	cfg.Start = c.startPose()
	cfg.MaxLinear = c.RobotCfg.MaxLinearVelocity
	cfg.MinAngular = -c.RobotCfg.MaxAngularVelocity
	cfg.MaxAngular = c.RobotCfg.MaxAngularVelocity
	if c.SensorCfg.MaxRange > 0 {
		cfg.Sensor.MaxRange = c.SensorCfg.MaxRange
	}
	return cfg, nil
}

// BuildWorld constructs the configured world once, for callers that do not
// go through engine.Setup.
func (c *Config) BuildWorld() (*world.World, error) {
	return world.New(c.WorldOptions(), c.ObstacleList(), c.target())
}
