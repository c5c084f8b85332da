package geometry

import "math"

// AABB is an axis-aligned bounding box. Boundaries are inclusive.
type AABB struct {
	Min Vector2D
	Max Vector2D
}

// BoundsOf returns the smallest box enclosing all points. With no points it
// returns the zero box.
func BoundsOf(points ...Vector2D) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min.X = math.Min(box.Min.X, p.X)
		box.Min.Y = math.Min(box.Min.Y, p.Y)
		box.Max.X = math.Max(box.Max.X, p.X)
		box.Max.Y = math.Max(box.Max.Y, p.Y)
	}
	return box
}

// Expand grows the box by m on every side.
func (b AABB) Expand(m float64) AABB {
	return AABB{
		Min: Vector2D{X: b.Min.X - m, Y: b.Min.Y - m},
		Max: Vector2D{X: b.Max.X + m, Y: b.Max.Y + m},
	}
}

// Intersects reports whether the boxes overlap or touch.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

func (b AABB) Contains(p Vector2D) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Size returns the width and height of the box.
func (b AABB) Size() (float64, float64) {
	return b.Max.X - b.Min.X, b.Max.Y - b.Min.Y
}
