package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/navsim/internal/geometry"
)

func square(x, y, size float64) Polygon {
	return Polygon{Vertices: []geometry.Vector2D{
		{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size},
	}}
}

func newTestWorld(t *testing.T, obstacles ...Obstacle) *World {
	t.Helper()
	w, err := New(DefaultOptions(), obstacles, Target{Center: geometry.Vec(600, 600), Radius: 25})
	require.NoError(t, err)
	return w
}

func TestNew_Validation(t *testing.T) {
	good := Target{Center: geometry.Vec(600, 600), Radius: 25}
	tests := []struct {
		name      string
		opts      Options
		obstacles []Obstacle
		target    Target
		wantErr   error
	}{
		{"zero width", Options{Width: 0, Height: 10}, nil, good, ErrInvalidOptions},
		{"negative margin", Options{Width: 700, Height: 700, DetectionMargin: -1}, nil, good, ErrInvalidOptions},
		{"two vertex polygon", DefaultOptions(), []Obstacle{Polygon{Vertices: []geometry.Vector2D{{X: 1, Y: 1}, {X: 2, Y: 2}}}}, good, ErrInvalidObstacle},
		{"negative radius", Options{Width: 700, Height: 700}, []Obstacle{Circle{Center: geometry.Vec(10, 10), Radius: -1}}, good, ErrInvalidObstacle},
		{"circle outside", DefaultOptions(), []Obstacle{Circle{Center: geometry.Vec(800, 10)}}, good, ErrOutOfBounds},
		{"vertex outside", DefaultOptions(), []Obstacle{square(690, 690, 20)}, good, ErrOutOfBounds},
		{"nan vertex", DefaultOptions(), []Obstacle{Polygon{Vertices: []geometry.Vector2D{{X: math.NaN()}, {X: 1}, {Y: 1}}}}, good, ErrInvalidObstacle},
		{"nil obstacle", DefaultOptions(), []Obstacle{nil}, good, ErrInvalidObstacle},
		{"negative target radius", DefaultOptions(), nil, Target{Center: geometry.Vec(1, 1), Radius: -5}, ErrInvalidTarget},
		{"target outside", DefaultOptions(), nil, Target{Center: geometry.Vec(-1, 1), Radius: 5}, ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, tt.obstacles, tt.target)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("target outside is also an invalid target", func(t *testing.T) {
		_, err := New(DefaultOptions(), nil, Target{Center: geometry.Vec(-1, 1), Radius: 5})
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestNew_SharedCircleRadius(t *testing.T) {
	w := newTestWorld(t, Circle{Center: geometry.Vec(350, 350), Radius: 3}, &Circle{Center: geometry.Vec(100, 100)})
	obs := w.Obstacles()
	require.Len(t, obs, 2)
	for _, ob := range obs {
		c, ok := ob.(Circle)
		require.True(t, ok)
		assert.Equal(t, 45.0, c.Radius)
	}

	opts := DefaultOptions()
	opts.CircleRadius = 0
	w, err := New(opts, []Obstacle{Circle{Center: geometry.Vec(350, 350), Radius: 3}}, Target{Center: geometry.Vec(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 3.0, w.Obstacles()[0].(Circle).Radius, "per-circle radius kept without a shared value")
}

func TestCheckCollision(t *testing.T) {
	w := newTestWorld(t, Circle{Center: geometry.Vec(350, 350)}, square(100, 100, 50))

	assert.True(t, w.CheckCollision(geometry.Vec(350, 350), 0))
	assert.True(t, w.CheckCollision(geometry.Vec(350, 400), 5), "exactly r+margin is a collision")
	assert.False(t, w.CheckCollision(geometry.Vec(350, 400.01), 5))

	assert.True(t, w.CheckCollision(geometry.Vec(125, 125), 0), "inside polygon")
	assert.True(t, w.CheckCollision(geometry.Vec(160, 125), 10), "within margin of an edge")
	assert.False(t, w.CheckCollision(geometry.Vec(160.5, 125), 10))
	assert.False(t, w.CheckCollision(geometry.Vec(500, 200), 10))
}

func TestIsPathClear(t *testing.T) {
	w := newTestWorld(t, Circle{Center: geometry.Vec(350, 350)}, square(100, 100, 50))

	assert.False(t, w.IsPathClear(geometry.Vec(350, 200), geometry.Vec(350, 500), 10), "straight through the circle")
	assert.True(t, w.IsPathClear(geometry.Vec(300, 200), geometry.Vec(300, 260), 10))
	assert.False(t, w.IsPathClear(geometry.Vec(50, 125), geometry.Vec(200, 125), 0), "crosses the square")
	assert.False(t, w.IsPathClear(geometry.Vec(155, 50), geometry.Vec(155, 200), 10), "grazes the inflated edge")
	assert.True(t, w.IsPathClear(geometry.Vec(165, 50), geometry.Vec(165, 200), 10))
}

func TestIsPathClear_DegenerateMatchesCollision(t *testing.T) {
	w := newTestWorld(t, WithBoundaryWalls(DefaultOptions(),
		Circle{Center: geometry.Vec(350, 350)},
		square(100, 100, 50),
		Polygon{Vertices: []geometry.Vector2D{{X: 400, Y: 100}, {X: 500, Y: 120}, {X: 450, Y: 200}}},
	)...)

	for x := 0.0; x <= 700; x += 7 {
		for y := 0.0; y <= 700; y += 7 {
			p := geometry.Vec(x, y)
			for _, m := range []float64{0, 10} {
				require.Equal(t, !w.CheckCollision(p, m), w.IsPathClear(p, p, m), "p=%+v m=%v", p, m)
			}
		}
	}
}

func TestBroadphaseMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var obstacles []Obstacle
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			obstacles = append(obstacles, Circle{Center: geometry.Vec(50+rng.Float64()*600, 50+rng.Float64()*600)})
		} else {
			obstacles = append(obstacles, square(20+rng.Float64()*600, 20+rng.Float64()*600, 10+rng.Float64()*50))
		}
	}
	w := newTestWorld(t, obstacles...)

	for i := 0; i < 500; i++ {
		p1 := geometry.Vec(rng.Float64()*700, rng.Float64()*700)
		p2 := p1.Add(geometry.FromHeading(rng.Float64() * 360).Mul(rng.Float64() * 40))
		margin := rng.Float64() * 15

		bruteClear, bruteHit := true, false
		for _, ob := range w.obstacles {
			if ob.blocksSegment(p1, p2, margin) {
				bruteClear = false
			}
			if ob.collides(p1, margin) {
				bruteHit = true
			}
		}
		assert.Equal(t, bruteClear, w.IsPathClear(p1, p2, margin))
		assert.Equal(t, bruteHit, w.CheckCollision(p1, margin))
	}
}

func TestGoal(t *testing.T) {
	w := newTestWorld(t)
	assert.InDelta(t, 50.0, w.DistanceToTarget(geometry.Vec(600, 650)), 1e-9)
	assert.True(t, w.IsGoalReached(geometry.Vec(600, 645)), "radius 25 + margin 20")
	assert.False(t, w.IsGoalReached(geometry.Vec(600, 645.5)))
}

func TestRayDistance(t *testing.T) {
	w := newTestWorld(t, Circle{Center: geometry.Vec(350, 350)}, square(100, 100, 50))

	assert.InDelta(t, 55.0, w.RayDistance(geometry.Vec(350, 250), 90, 120), 1e-9)
	assert.Equal(t, 120.0, w.RayDistance(geometry.Vec(350, 250), 270, 120), "nothing below")
	assert.Equal(t, 0.0, w.RayDistance(geometry.Vec(350, 350), 0, 120), "inside the circle")
	assert.InDelta(t, 30.0, w.RayDistance(geometry.Vec(70, 125), 0, 60), 1e-9)
	assert.Equal(t, 0.0, w.RayDistance(geometry.Vec(125, 125), 45, 60), "inside the square")
	assert.Equal(t, 0.0, w.RayDistance(geometry.Vec(500, 500), 0, 0))
}

func TestWithBoundaryWalls(t *testing.T) {
	opts := DefaultOptions()
	obs := WithBoundaryWalls(opts, Circle{Center: geometry.Vec(350, 350)})
	require.Len(t, obs, 5)
	for _, ob := range obs[:4] {
		pg, ok := ob.(Polygon)
		require.True(t, ok)
		assert.Len(t, pg.Vertices, 4)
	}

	w := newTestWorld(t, obs...)
	assert.True(t, w.CheckCollision(geometry.Vec(350, 15), 10), "within margin of the bottom wall")
	assert.True(t, w.CheckCollision(geometry.Vec(695, 350), 0), "inside the right wall")
	assert.False(t, w.CheckCollision(geometry.Vec(350, 200), 10))
	assert.InDelta(t, 490.0, w.RayDistance(geometry.Vec(200, 200), 90, 1000), 1e-9, "top wall inner face at y=690")
	assert.InDelta(t, 105.0, w.RayDistance(geometry.Vec(350, 200), 90, 1000), 1e-9, "circle surface at y=305")
}

func TestClearance(t *testing.T) {
	c := Circle{Center: geometry.Vec(0, 0), Radius: 10}
	cl := c.Clearance(geometry.Vec(20, 0))
	assert.InDelta(t, 10.0, cl.Distance, 1e-9)
	assert.InDelta(t, 1.0, cl.Away.X, 1e-9)
	assert.False(t, cl.Inside)

	cl = c.Clearance(geometry.Vec(0, 0))
	assert.True(t, cl.Inside)
	assert.Equal(t, 0.0, cl.Distance)
	assert.InDelta(t, 1.0, cl.Away.Mag(), 1e-9)

	sq := square(0, 0, 10)
	cl = sq.Clearance(geometry.Vec(5, 15))
	assert.InDelta(t, 5.0, cl.Distance, 1e-9)
	assert.InDelta(t, 1.0, cl.Away.Y, 1e-9)

	cl = sq.Clearance(geometry.Vec(5, 8))
	assert.True(t, cl.Inside)
	assert.InDelta(t, 1.0, cl.Away.Y, 1e-9, "inside, the push points out through the nearest edge")
}
