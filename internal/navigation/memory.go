package navigation

import (
	"github.com/xkilldash9x/navsim/internal/geometry"
)

// StuckState is the potential-field progress state.
type StuckState int

const (
	StateNormal StuckState = iota
	StateStuck
)

func (s StuckState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateStuck:
		return "STUCK"
	default:
		return "UNKNOWN"
	}
}

// Memory is the bounded position history behind stuck detection. It keeps the
// last window+1 positions so the newest can be compared with the one window
// ticks earlier.
type Memory struct {
	window  int
	epsilon float64

	positions []geometry.Vector2D
	head      int // next write slot
	count     int

	state      StuckState
	stuckTicks int
}

func NewMemory(window int, epsilon float64) *Memory {
	if window < 1 {
		window = 1
	}
	return &Memory{
		window:    window,
		epsilon:   epsilon,
		positions: make([]geometry.Vector2D, window+1),
	}
}

// Record appends p and advances the state machine. In STUCK, every tick that
// still shows no progress bumps the stuck counter; progress returns to NORMAL.
func (m *Memory) Record(p geometry.Vector2D) StuckState {
	m.positions[m.head] = p
	m.head = (m.head + 1) % len(m.positions)
	if m.count < len(m.positions) {
		m.count++
	}

	stuck := m.IsStuck()
	switch m.state {
	case StateNormal:
		if stuck {
			m.state = StateStuck
			m.stuckTicks = 0
		}
	case StateStuck:
		if stuck {
			m.stuckTicks++
		} else {
			m.state = StateNormal
			m.stuckTicks = 0
		}
	}
	return m.state
}

// IsStuck reports whether the window is full and the robot moved less than
// epsilon across it.
func (m *Memory) IsStuck() bool {
	if m.count < len(m.positions) {
		return false
	}
	return m.Newest().Dist(m.Oldest()) < m.epsilon
}

func (m *Memory) Newest() geometry.Vector2D {
	return m.positions[(m.head-1+len(m.positions))%len(m.positions)]
}

// Oldest is the earliest retained position. With a partial window it is the
// first recorded one.
func (m *Memory) Oldest() geometry.Vector2D {
	if m.count < len(m.positions) {
		return m.positions[0]
	}
	return m.positions[m.head]
}

func (m *Memory) State() StuckState { return m.state }
func (m *Memory) StuckTicks() int   { return m.stuckTicks }
func (m *Memory) Len() int          { return m.count }

// Reset drops the history and returns to NORMAL.
func (m *Memory) Reset() {
	for i := range m.positions {
		m.positions[i] = geometry.Vector2D{}
	}
	m.head, m.count = 0, 0
	m.state = StateNormal
	m.stuckTicks = 0
}
