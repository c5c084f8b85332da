package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/xkilldash9x/navsim/internal/geometry"
)

// Options holds the arena-wide constants of a world.
type Options struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// CircleRadius, when positive, is the shared radius applied to every circle.
	CircleRadius float64 `json:"circle_radius"`
	// DetectionMargin is added to the target radius when testing for the goal.
	DetectionMargin float64 `json:"detection_margin"`
	WallThickness   float64 `json:"wall_thickness"`
}

// DefaultOptions is the stock 700x700 arena.
func DefaultOptions() Options {
	return Options{
		Width:           700,
		Height:          700,
		CircleRadius:    45,
		DetectionMargin: 20,
		WallThickness:   10,
	}
}

func (o Options) validate() error {
	for name, v := range map[string]float64{"width": o.Width, "height": o.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidOptions, name, v)
		}
	}
	for name, v := range map[string]float64{
		"circle radius":    o.CircleRadius,
		"detection margin": o.DetectionMargin,
		"wall thickness":   o.WallThickness,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %v", ErrInvalidOptions, name, v)
		}
	}
	return nil
}

// World is the static arena for one episode: an ordered set of obstacles and a
// single target. It is immutable after New and safe for concurrent readers.
type World struct {
	opts      Options
	bounds    geometry.AABB
	obstacles []Obstacle
	target    Target
	index     *rtreego.Rtree
}

// New validates its inputs and builds the world together with its spatial index.
func New(opts Options, obstacles []Obstacle, target Target) (*World, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	bounds := geometry.AABB{Max: geometry.Vec(opts.Width, opts.Height)}

	owned := make([]Obstacle, 0, len(obstacles))
	for i, ob := range obstacles {
		switch o := ob.(type) {
		case *Circle:
			if o == nil {
				return nil, fmt.Errorf("obstacle %d: %w: nil circle", i, ErrInvalidObstacle)
			}
			ob = *o
		case *Polygon:
			if o == nil {
				return nil, fmt.Errorf("obstacle %d: %w: nil polygon", i, ErrInvalidObstacle)
			}
			ob = *o
		}
		switch o := ob.(type) {
		case Circle:
			if opts.CircleRadius > 0 {
				o.Radius = opts.CircleRadius
			}
			ob = o
		case Polygon:
			o.Vertices = append([]geometry.Vector2D(nil), o.Vertices...)
			ob = o
		case nil:
			return nil, fmt.Errorf("obstacle %d: %w: nil", i, ErrInvalidObstacle)
		}
		if err := ob.validate(bounds); err != nil {
			return nil, fmt.Errorf("obstacle %d: %w", i, err)
		}
		owned = append(owned, ob)
	}

	if math.IsNaN(target.Radius) || math.IsInf(target.Radius, 0) || target.Radius < 0 {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidTarget, target.Radius)
	}
	if !target.Center.IsFinite() {
		return nil, fmt.Errorf("%w: center %+v is not finite", ErrInvalidTarget, target.Center)
	}
	if !bounds.Contains(target.Center) {
		return nil, fmt.Errorf("%w: center %+v: %w", ErrInvalidTarget, target.Center, ErrOutOfBounds)
	}

	w := &World{
		opts:      opts,
		bounds:    bounds,
		obstacles: owned,
		target:    target,
	}
	w.index = buildIndex(owned)
	return w, nil
}

func (w *World) Options() Options { return w.opts }

// Bounds is the arena rectangle [0,Width]x[0,Height].
func (w *World) Bounds() geometry.AABB { return w.bounds }

func (w *World) Target() Target { return w.target }

// Obstacles returns the obstacles in construction order. The slice is a copy.
func (w *World) Obstacles() []Obstacle {
	return append([]Obstacle(nil), w.obstacles...)
}

// CheckCollision reports whether a robot centred at p, with the given clearance
// margin, would overlap any obstacle.
func (w *World) CheckCollision(p geometry.Vector2D, margin float64) bool {
	for _, ob := range w.candidates(geometry.BoundsOf(p), margin) {
		if ob.collides(p, margin) {
			return true
		}
	}
	return false
}

// IsPathClear reports whether the straight move from p1 to p2 keeps at least
// margin away from every obstacle. IsPathClear(p, p, m) equals !CheckCollision(p, m).
func (w *World) IsPathClear(p1, p2 geometry.Vector2D, margin float64) bool {
	for _, ob := range w.candidates(geometry.BoundsOf(p1, p2), margin) {
		if ob.blocksSegment(p1, p2, margin) {
			return false
		}
	}
	return true
}

func (w *World) DistanceToTarget(p geometry.Vector2D) float64 {
	return p.Dist(w.target.Center)
}

// IsGoalReached is true once p is within the target radius plus the detection margin.
func (w *World) IsGoalReached(p geometry.Vector2D) bool {
	return w.DistanceToTarget(p) <= w.target.Radius+w.opts.DetectionMargin
}

// RayDistance casts a ray from origin along headingDeg and returns the distance
// to the first obstacle surface, maxRange when nothing is hit, and 0 when the
// origin is already inside an obstacle.
func (w *World) RayDistance(origin geometry.Vector2D, headingDeg, maxRange float64) float64 {
	if maxRange <= 0 {
		return 0
	}
	end := origin.Add(geometry.FromHeading(headingDeg).Mul(maxRange))
	best := 1.0
	for _, ob := range w.candidates(geometry.BoundsOf(origin, end), 0) {
		if t, ok := ob.rayHit(origin, end); ok && t < best {
			best = t
		}
	}
	return best * maxRange
}

// ObstaclesNear returns the obstacles whose surface may lie within radius of p,
// in construction order.
func (w *World) ObstaclesNear(p geometry.Vector2D, radius float64) []Obstacle {
	return w.candidates(geometry.BoundsOf(p), radius)
}

type indexedObstacle struct {
	order    int
	obstacle Obstacle
	rect     rtreego.Rect
}

func (e *indexedObstacle) Bounds() rtreego.Rect { return e.rect }

// indexPad keeps every index rectangle non-degenerate and makes touching boxes
// overlap, since the tree uses strict comparisons.
const indexPad = 1e-6

func toRect(box geometry.AABB, pad float64) rtreego.Rect {
	w, h := box.Size()
	// NewRect only fails for non-positive lengths, which pad rules out.
	rect, _ := rtreego.NewRect(
		rtreego.Point{box.Min.X - pad, box.Min.Y - pad},
		[]float64{w + 2*pad, h + 2*pad},
	)
	return rect
}

func buildIndex(obstacles []Obstacle) *rtreego.Rtree {
	spatials := make([]rtreego.Spatial, len(obstacles))
	for i, ob := range obstacles {
		spatials[i] = &indexedObstacle{order: i, obstacle: ob, rect: toRect(ob.Bounds(), indexPad)}
	}
	return rtreego.NewTree(2, 2, 8, spatials...)
}

// candidates returns the obstacles whose bounding box, inflated by margin,
// overlaps box. The result is a superset of the obstacles any exact query can
// hit, sorted by construction order so float accumulation stays deterministic.
func (w *World) candidates(box geometry.AABB, margin float64) []Obstacle {
	if len(w.obstacles) == 0 {
		return nil
	}
	pad := math.Max(margin, 0) + 1
	hits := w.index.SearchIntersect(toRect(box, pad))
	if len(hits) == 0 {
		return nil
	}
	entries := make([]*indexedObstacle, 0, len(hits))
	for _, h := range hits {
		entries = append(entries, h.(*indexedObstacle))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	out := make([]Obstacle, len(entries))
	for i, e := range entries {
		out[i] = e.obstacle
	}
	return out
}
