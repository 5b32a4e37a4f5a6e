package physics

import "github.com/golang/geo/r2"

// Place returns a non-overlapping centre for a body of the given radius
// resting against hit. When the reported centroid lies closer to the contact
// point than one radius, the body is pushed exactly one radius out along the
// normal instead.
func Place(hit SweepHit, radius float64) r2.Point {
	if Distance(hit.Point, hit.Centroid) < radius {
		return hit.Point.Add(hit.Normal.Mul(radius))
	}
	return hit.Centroid
}
