// internal/geometry/vector.go
package geometry

import "math"

// epsilon is the tolerance used when a magnitude or a cross product is treated as zero.
const epsilon = 1e-9

// Vector2D is a point or a displacement in arena coordinates. The Y axis
// points "up" in the math sense: a heading of 90 degrees moves along +Y.
type Vector2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vec is shorthand for building a Vector2D.
func Vec(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// FromHeading returns the unit vector for a heading given in degrees,
// 0 = +X, counter-clockwise positive.
func FromHeading(deg float64) Vector2D {
	rad := deg * math.Pi / 180.0
	return Vector2D{X: math.Cos(rad), Y: math.Sin(rad)}
}

func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{X: v.X * scalar, Y: v.Y * scalar}
}

func (v Vector2D) Dot(other Vector2D) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Cross returns the z component of the 3D cross product of v and other.
func (v Vector2D) Cross(other Vector2D) float64 {
	return v.X*other.Y - v.Y*other.X
}

// MagSq is the squared length, cheaper than Mag for comparisons.
func (v Vector2D) MagSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vector2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector of v, or the zero vector when v is (near) zero.
func (v Vector2D) Normalize() Vector2D {
	mag := v.Mag()
	if mag < epsilon {
		return Vector2D{}
	}
	return v.Mul(1.0 / mag)
}

func (v Vector2D) Dist(other Vector2D) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// Limit caps the magnitude of v at max while keeping its direction.
func (v Vector2D) Limit(max float64) Vector2D {
	magSq := v.MagSq()
	if magSq > max*max && magSq > 0 {
		return v.Mul(max / math.Sqrt(magSq))
	}
	return v
}

// Angle is the direction of v in radians, in [-Pi, Pi].
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Heading is the direction of v in degrees, normalized to [0, 360).
func (v Vector2D) Heading() float64 {
	return NormalizeDegrees(v.Angle() * 180.0 / math.Pi)
}

// Perp rotates v by +90 degrees (counter-clockwise).
func (v Vector2D) Perp() Vector2D {
	return Vector2D{X: -v.Y, Y: v.X}
}

// IsZero reports whether both components are within epsilon of zero.
func (v Vector2D) IsZero() bool {
	return math.Abs(v.X) < epsilon && math.Abs(v.Y) < epsilon
}

// IsFinite reports whether neither component is NaN or infinite.
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
