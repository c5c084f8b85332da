// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Arena() ArenaConfig
	Robot() RobotConfig
	Target() TargetConfig
	Obstacles() ObstaclesConfig
	Sensor() SensorConfig
	Navigation() NavigationConfig
	Engine() EngineConfig
	Batch() BatchConfig
	Stream() StreamConfig

	// CLI flag overrides
	SetNavigationPolicy(string)
	SetNavigationActionMode(string)
	SetNavigationSeed(int64)
	SetEngineMaxSteps(int)
	SetEngineTickRate(float64)
	SetBatchEpisodes(int)
	SetBatchConcurrency(int)
	SetStreamAddr(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	ArenaCfg      ArenaConfig      `mapstructure:"arena" yaml:"arena"`
	RobotCfg      RobotConfig      `mapstructure:"robot" yaml:"robot"`
	TargetCfg     TargetConfig     `mapstructure:"target" yaml:"target"`
	ObstaclesCfg  ObstaclesConfig  `mapstructure:"obstacles" yaml:"obstacles"`
	SensorCfg     SensorConfig     `mapstructure:"sensor" yaml:"sensor"`
	NavigationCfg NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	EngineCfg     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	BatchCfg      BatchConfig      `mapstructure:"batch" yaml:"batch"`
	StreamCfg     StreamConfig     `mapstructure:"stream" yaml:"stream"`
}

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig     { return c.DatabaseCfg }
func (c *Config) Arena() ArenaConfig           { return c.ArenaCfg }
func (c *Config) Robot() RobotConfig           { return c.RobotCfg }
func (c *Config) Target() TargetConfig         { return c.TargetCfg }
func (c *Config) Obstacles() ObstaclesConfig   { return c.ObstaclesCfg }
func (c *Config) Sensor() SensorConfig         { return c.SensorCfg }
func (c *Config) Navigation() NavigationConfig { return c.NavigationCfg }
func (c *Config) Engine() EngineConfig         { return c.EngineCfg }
func (c *Config) Batch() BatchConfig           { return c.BatchCfg }
func (c *Config) Stream() StreamConfig         { return c.StreamCfg }

func (c *Config) SetNavigationPolicy(p string)     { c.NavigationCfg.Policy = p }
func (c *Config) SetNavigationActionMode(m string) { c.NavigationCfg.ActionMode = m }
func (c *Config) SetNavigationSeed(s int64)        { c.NavigationCfg.Seed = s }
func (c *Config) SetEngineMaxSteps(n int)          { c.EngineCfg.MaxSteps = n }
func (c *Config) SetEngineTickRate(r float64)      { c.EngineCfg.TickRate = r }
func (c *Config) SetBatchEpisodes(n int)           { c.BatchCfg.Episodes = n }
func (c *Config) SetBatchConcurrency(n int)        { c.BatchCfg.Concurrency = n }
func (c *Config) SetStreamAddr(a string)           { c.StreamCfg.Addr = a }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// EngineConfig configures episode termination and pacing.
type EngineConfig struct {
	MaxSteps        int  `mapstructure:"max_steps" yaml:"max_steps"`
	StopOnCollision bool `mapstructure:"stop_on_collision" yaml:"stop_on_collision"`
	// TickRate is ticks per second; 0 runs unpaced.
	TickRate float64 `mapstructure:"tick_rate" yaml:"tick_rate"`
}

// BatchConfig configures the concurrent batch runner.
type BatchConfig struct {
	Episodes    int `mapstructure:"episodes" yaml:"episodes"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// StreamConfig configures the live websocket server.
type StreamConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	TickRate     float64       `mapstructure:"tick_rate" yaml:"tick_rate"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "navsim")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Database --
	v.SetDefault("database.url", "")
	v.SetDefault("database.connect_timeout", "10s")

	// World, robot, sensor and policy tunables live in navigation_config.go.
	setSimulationDefaults(v)

	// -- Engine --
	v.SetDefault("engine.max_steps", 500)
	v.SetDefault("engine.stop_on_collision", true)
	v.SetDefault("engine.tick_rate", 0.0)

	// -- Batch --
	v.SetDefault("batch.episodes", 20)
	v.SetDefault("batch.concurrency", 4)

	// -- Stream --
	v.SetDefault("stream.addr", ":8080")
	v.SetDefault("stream.tick_rate", 20.0)
	v.SetDefault("stream.write_timeout", "5s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The connection string usually carries a password, so allow the
	// conventional variable as well as the prefixed one.
	_ = v.BindEnv("database.url", "NAVSIM_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.ArenaCfg.Validate(); err != nil {
		return fmt.Errorf("arena configuration invalid: %w", err)
	}
	if err := c.RobotCfg.Validate(); err != nil {
		return fmt.Errorf("robot configuration invalid: %w", err)
	}
	if err := c.TargetCfg.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if err := c.ObstaclesCfg.Validate(); err != nil {
		return fmt.Errorf("obstacles configuration invalid: %w", err)
	}
	if err := c.SensorCfg.Validate(); err != nil {
		return fmt.Errorf("sensor configuration invalid: %w", err)
	}
	if err := c.NavigationCfg.Validate(); err != nil {
		return fmt.Errorf("navigation configuration invalid: %w", err)
	}
	if c.EngineCfg.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be a positive integer")
	}
	if c.EngineCfg.TickRate < 0 {
		return fmt.Errorf("engine.tick_rate must not be negative")
	}
	if c.BatchCfg.Episodes < 0 {
		return fmt.Errorf("batch.episodes must not be negative")
	}
	if c.BatchCfg.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be a positive integer")
	}
	if c.StreamCfg.TickRate < 0 {
		return fmt.Errorf("stream.tick_rate must not be negative")
	}
	return nil
}
