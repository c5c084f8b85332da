package geometry

import "math"

// CircleContainsPoint reports whether p lies inside or on the circle.
func CircleContainsPoint(center Vector2D, radius float64, p Vector2D) bool {
	return center.Dist(p) <= radius
}

// PolygonContainsPoint runs an even-odd crossing test. Each edge covers the
// half-open y-interval between its endpoints, so a scan line passing through a
// vertex is counted exactly once. Fewer than three vertices never contain anything.
func PolygonContainsPoint(vertices []Vector2D, p Vector2D) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := vertices[i], vertices[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) {
			xCross := (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// PointSegmentDistance returns the distance from p to segment ab and the closest
// point on it. The projection parameter is clamped to [0, 1]; a zero-length
// segment degenerates to the distance to a.
func PointSegmentDistance(p, a, b Vector2D) (float64, Vector2D) {
	ab := b.Sub(a)
	lenSq := ab.MagSq()
	if lenSq < epsilon*epsilon {
		return p.Dist(a), a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := a.Add(ab.Mul(t))
	return p.Dist(closest), closest
}

// SegmentIntersectsCircle reports whether segment p1p2 touches the circle.
func SegmentIntersectsCircle(p1, p2, center Vector2D, radius float64) bool {
	d, _ := PointSegmentDistance(center, p1, p2)
	return d <= radius
}

// SegmentIntersection returns the crossing point of segments a1a2 and b1b2.
// Parallel, collinear and zero-length segments report no intersection.
func SegmentIntersection(a1, a2, b1, b2 Vector2D) (Vector2D, bool) {
	t, _, ok := segmentParams(a1, a2, b1, b2)
	if !ok {
		return Vector2D{}, false
	}
	return a1.Add(a2.Sub(a1).Mul(t)), true
}

// segmentParams solves a1 + t*(a2-a1) = b1 + u*(b2-b1) and reports whether both
// parameters fall in [0, 1].
func segmentParams(a1, a2, b1, b2 Vector2D) (t, u float64, ok bool) {
	r := a2.Sub(a1)
	s := b2.Sub(b1)
	denom := r.Cross(s)
	if math.Abs(denom) < epsilon {
		return 0, 0, false
	}
	qp := b1.Sub(a1)
	t = qp.Cross(s) / denom
	u = qp.Cross(r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, 0, false
	}
	return t, u, true
}

// SegmentSegmentDistance is zero when the segments cross, otherwise the smallest
// endpoint-to-segment distance. Collinear overlaps come out as zero through the
// endpoint distances.
func SegmentSegmentDistance(a1, a2, b1, b2 Vector2D) float64 {
	if _, _, ok := segmentParams(a1, a2, b1, b2); ok {
		return 0
	}
	d1, _ := PointSegmentDistance(a1, b1, b2)
	d2, _ := PointSegmentDistance(a2, b1, b2)
	d3, _ := PointSegmentDistance(b1, a1, a2)
	d4, _ := PointSegmentDistance(b2, a1, a2)
	return math.Min(math.Min(d1, d2), math.Min(d3, d4))
}

// PointPolygonEdgeDistance returns the distance from p to the nearest polygon edge and
// the nearest point on that edge. Containment is not considered.
func PointPolygonEdgeDistance(vertices []Vector2D, p Vector2D) (float64, Vector2D) {
	best := math.Inf(1)
	var nearest Vector2D
	n := len(vertices)
	for i := 0; i < n; i++ {
		d, c := PointSegmentDistance(p, vertices[i], vertices[(i+1)%n])
		if d < best {
			best, nearest = d, c
		}
	}
	return best, nearest
}

// SegmentIntersectsPolygon reports whether segment p1p2 crosses any polygon edge
// or has an endpoint inside the polygon.
func SegmentIntersectsPolygon(p1, p2 Vector2D, vertices []Vector2D) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}
	if !BoundsOf(p1, p2).Intersects(BoundsOf(vertices...)) {
		return false
	}
	for i := 0; i < n; i++ {
		if _, ok := SegmentIntersection(p1, p2, vertices[i], vertices[(i+1)%n]); ok {
			return true
		}
	}
	return PolygonContainsPoint(vertices, p1) || PolygonContainsPoint(vertices, p2)
}

// SegmentPolygonEdgeDistance is the smallest distance between segment p1p2 and
// any polygon edge.
func SegmentPolygonEdgeDistance(p1, p2 Vector2D, vertices []Vector2D) float64 {
	best := math.Inf(1)
	n := len(vertices)
	for i := 0; i < n; i++ {
		best = math.Min(best, SegmentSegmentDistance(p1, p2, vertices[i], vertices[(i+1)%n]))
	}
	return best
}

// RaySegmentHit returns the parameter t in [0, 1] along origin->end at which the
// segment ab is first met.
func RaySegmentHit(origin, end, a, b Vector2D) (float64, bool) {
	t, _, ok := segmentParams(origin, end, a, b)
	return t, ok
}

// RayCircleHit returns the parameter t in [0, 1] along origin->end at which the
// circle boundary is first met. An origin inside the circle hits at t = 0.
func RayCircleHit(origin, end, center Vector2D, radius float64) (float64, bool) {
	d := end.Sub(origin)
	f := origin.Sub(center)
	c := f.MagSq() - radius*radius
	if c <= 0 {
		return 0, true
	}
	a := d.MagSq()
	if a < epsilon*epsilon {
		return 0, false
	}
	b := 2 * f.Dot(d)
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// Centroid is the vertex average, good enough as an interior reference point for
// the convex and mildly concave shapes used in arenas.
func Centroid(vertices []Vector2D) Vector2D {
	if len(vertices) == 0 {
		return Vector2D{}
	}
	var sum Vector2D
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1.0 / float64(len(vertices)))
}
