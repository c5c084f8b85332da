package engine

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/xkilldash9x/navsim/internal/navigation"
	"github.com/xkilldash9x/navsim/internal/sensor"
	"github.com/xkilldash9x/navsim/internal/world"
)

// Setup is the complete recipe for an episode. Build produces an independent
// World, Sonar, Policy and Engine every time, so episodes never share state.
type Setup struct {
	World     world.Options
	Obstacles []world.Obstacle
	Target    world.Target
	// Sensor is nil when sensing is disabled.
	Sensor *sensor.Config
	Policy navigation.Kind
	Params navigation.Params
	Engine Config
}

// Build assembles an engine whose randomized branches draw from seed.
func (s Setup) Build(seed int64, logger *zap.Logger) (*Engine, error) {
	w, err := world.New(s.World, s.Obstacles, s.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to build world: %w", err)
	}

	var sonar *sensor.Sonar
	if s.Sensor != nil {
		sonar, err = sensor.New(*s.Sensor)
		if err != nil {
			return nil, fmt.Errorf("failed to build sensor: %w", err)
		}
	}

	params := s.Params
	if params.Mode == "" {
		params.Mode = s.Engine.Mode
	}
	policy, err := navigation.New(s.Policy, params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("failed to build policy: %w", err)
	}

	eng, err := New(s.Engine, w, sonar, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	return eng, nil
}
