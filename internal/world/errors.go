package world

import "errors"

var (
	// ErrInvalidObstacle is returned for malformed obstacles: polygons with fewer
	// than three vertices, negative radii, or non-finite coordinates.
	ErrInvalidObstacle = errors.New("invalid obstacle")
	// ErrOutOfBounds is returned when a coordinate lies outside the arena.
	ErrOutOfBounds = errors.New("coordinate outside arena bounds")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrInvalidOptions = errors.New("invalid world options")
)
