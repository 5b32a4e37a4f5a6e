package physics

import "github.com/golang/geo/r2"

// SpatialQuery answers "what would this swept circle hit?".
//
// Implementations must report every collider the circle touches along the
// path, including colliders it already touches at the origin (distance 0).
// The returned slice is owned by the caller.
type SpatialQuery interface {
	SweepCircle(origin r2.Point, radius float64, direction r2.Point, distance float64) []SweepHit
}

// SpatialQueryFunc adapts a plain function to SpatialQuery.
type SpatialQueryFunc func(origin r2.Point, radius float64, direction r2.Point, distance float64) []SweepHit

func (f SpatialQueryFunc) SweepCircle(origin r2.Point, radius float64, direction r2.Point, distance float64) []SweepHit {
	return f(origin, radius, direction, distance)
}

// ContactClassifier partitions a distance-sorted hit set into contacts the
// body already touches and the earliest contact still ahead of it.
type ContactClassifier interface {
	Classify(hits []SweepHit) (touching []SweepHit, first SweepHit, hasFirst bool)
}
