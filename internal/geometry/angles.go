package geometry

import "math"

// CompassStep is the spacing between compass headings, in degrees.
const CompassStep = 45.0

// CompassHeadings lists the eight compass headings in ascending order.
var CompassHeadings = [8]float64{0, 45, 90, 135, 180, 225, 270, 315}

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	// math.Mod can hand back 360 - tiny for inputs like -1e-15.
	if d >= 360.0 {
		d = 0
	}
	return d
}

// SignedAngle maps any angle onto (-180, 180].
func SignedAngle(deg float64) float64 {
	d := NormalizeDegrees(deg)
	if d > 180.0 {
		d -= 360.0
	}
	return d
}

// AngularDistance is the unsigned smallest rotation between two headings, in [0, 180].
func AngularDistance(a, b float64) float64 {
	return math.Abs(SignedAngle(a - b))
}

// SnapToCompass rounds a heading to the nearest multiple of 45 degrees.
func SnapToCompass(deg float64) float64 {
	return NormalizeDegrees(math.Round(NormalizeDegrees(deg)/CompassStep) * CompassStep)
}

// SameHeading compares two headings modulo 360 with a small tolerance.
func SameHeading(a, b float64) bool {
	return AngularDistance(a, b) < 1e-6
}

// Bearing is the heading in degrees from one point toward another.
func Bearing(from, to Vector2D) float64 {
	return to.Sub(from).Heading()
}
