package world

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/navsim/internal/geometry"
)

// Obstacle is a closed set of static shapes: Circle or Polygon. The unexported
// methods keep other packages from adding variants.
type Obstacle interface {
	// Bounds is the axis-aligned box of the raw shape.
	Bounds() geometry.AABB
	// Clearance describes where p sits relative to the obstacle surface.
	Clearance(p geometry.Vector2D) Clearance

	collides(p geometry.Vector2D, margin float64) bool
	blocksSegment(p1, p2 geometry.Vector2D, margin float64) bool
	rayHit(origin, end geometry.Vector2D) (float64, bool)
	validate(bounds geometry.AABB) error
}

// Clearance is the relation between a point and an obstacle surface.
type Clearance struct {
	// Distance to the nearest surface point, 0 when the point is inside.
	Distance float64
	// Away is the unit direction pointing from the obstacle toward the point.
	Away   geometry.Vector2D
	Inside bool
}

// Circle is a disc obstacle.
type Circle struct {
	Center geometry.Vector2D `json:"center"`
	Radius float64           `json:"radius"`
}

func (c Circle) Bounds() geometry.AABB {
	return geometry.BoundsOf(c.Center).Expand(c.Radius)
}

func (c Circle) Clearance(p geometry.Vector2D) Clearance {
	diff := p.Sub(c.Center)
	dist := diff.Mag() - c.Radius
	away := diff.Normalize()
	if away.IsZero() {
		away = geometry.Vec(1, 0)
	}
	if dist <= 0 {
		return Clearance{Distance: 0, Away: away, Inside: true}
	}
	return Clearance{Distance: dist, Away: away}
}

func (c Circle) collides(p geometry.Vector2D, margin float64) bool {
	return geometry.CircleContainsPoint(c.Center, c.Radius+margin, p)
}

func (c Circle) blocksSegment(p1, p2 geometry.Vector2D, margin float64) bool {
	return geometry.SegmentIntersectsCircle(p1, p2, c.Center, c.Radius+margin)
}

func (c Circle) rayHit(origin, end geometry.Vector2D) (float64, bool) {
	return geometry.RayCircleHit(origin, end, c.Center, c.Radius)
}

func (c Circle) validate(bounds geometry.AABB) error {
	if math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) || c.Radius < 0 {
		return fmt.Errorf("%w: circle radius %v", ErrInvalidObstacle, c.Radius)
	}
	if !c.Center.IsFinite() {
		return fmt.Errorf("%w: circle center %+v is not finite", ErrInvalidObstacle, c.Center)
	}
	if !bounds.Contains(c.Center) {
		return fmt.Errorf("%w: circle center %+v", ErrOutOfBounds, c.Center)
	}
	return nil
}

// Polygon is a simple polygon given by its vertices in order. The closing edge
// from the last vertex back to the first is implicit.
type Polygon struct {
	Vertices []geometry.Vector2D `json:"vertices"`
}

func (pg Polygon) Bounds() geometry.AABB {
	return geometry.BoundsOf(pg.Vertices...)
}

func (pg Polygon) Clearance(p geometry.Vector2D) Clearance {
	dist, nearest := geometry.PointPolygonEdgeDistance(pg.Vertices, p)
	inside := geometry.PolygonContainsPoint(pg.Vertices, p)
	away := p.Sub(nearest).Normalize()
	if inside {
		away = away.Mul(-1)
	}
	if away.IsZero() {
		away = p.Sub(geometry.Centroid(pg.Vertices)).Normalize()
	}
	if away.IsZero() {
		away = geometry.Vec(1, 0)
	}
	if inside {
		return Clearance{Distance: 0, Away: away, Inside: true}
	}
	return Clearance{Distance: dist, Away: away}
}

// collides treats the polygon as inflated by margin measured to the nearest
// edge. Corners come out sharp rather than rounded, so the buffer near a convex
// vertex is slightly larger than margin along the diagonal.
func (pg Polygon) collides(p geometry.Vector2D, margin float64) bool {
	if geometry.PolygonContainsPoint(pg.Vertices, p) {
		return true
	}
	d, _ := geometry.PointPolygonEdgeDistance(pg.Vertices, p)
	return d <= margin
}

func (pg Polygon) blocksSegment(p1, p2 geometry.Vector2D, margin float64) bool {
	if geometry.SegmentIntersectsPolygon(p1, p2, pg.Vertices) {
		return true
	}
	return geometry.SegmentPolygonEdgeDistance(p1, p2, pg.Vertices) <= margin
}

func (pg Polygon) rayHit(origin, end geometry.Vector2D) (float64, bool) {
	if geometry.PolygonContainsPoint(pg.Vertices, origin) {
		return 0, true
	}
	best, hit := math.Inf(1), false
	n := len(pg.Vertices)
	for i := 0; i < n; i++ {
		if t, ok := geometry.RaySegmentHit(origin, end, pg.Vertices[i], pg.Vertices[(i+1)%n]); ok && t < best {
			best, hit = t, true
		}
	}
	return best, hit
}

func (pg Polygon) validate(bounds geometry.AABB) error {
	if len(pg.Vertices) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidObstacle, len(pg.Vertices))
	}
	for _, v := range pg.Vertices {
		if !v.IsFinite() {
			return fmt.Errorf("%w: polygon vertex %+v is not finite", ErrInvalidObstacle, v)
		}
		if !bounds.Contains(v) {
			return fmt.Errorf("%w: polygon vertex %+v", ErrOutOfBounds, v)
		}
	}
	return nil
}

// Target is the goal disc.
type Target struct {
	Center geometry.Vector2D `json:"center"`
	Radius float64           `json:"radius"`
}

// WithBoundaryWalls returns four rectangular wall polygons of Options.WallThickness
// lining the arena edges, followed by the given obstacles.
func WithBoundaryWalls(opts Options, obstacles ...Obstacle) []Obstacle {
	w, h, th := opts.Width, opts.Height, opts.WallThickness
	rect := func(x0, y0, x1, y1 float64) Obstacle {
		return Polygon{Vertices: []geometry.Vector2D{
			{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
		}}
	}
	walls := []Obstacle{
		rect(0, 0, w, th),
		rect(0, h-th, w, h),
		rect(0, 0, th, h),
		rect(w-th, 0, w, h),
	}
	return append(walls, obstacles...)
}
