package physics

import (
	"math"

	"github.com/golang/geo/r2"
)

// CenterNormal aggregates the negated contact normals of a wedge. The running
// sum is renormalised after every addition, so earlier contacts weigh less
// than they would in a plain average.
func CenterNormal(contacts []SweepHit) r2.Point {
	if len(contacts) == 0 {
		return r2.Point{}
	}
	var sum r2.Point
	for _, c := range contacts {
		sum = sum.Add(Negate(c.Normal)).Normalize()
	}
	return sum.Mul(1 / float64(len(contacts))).Normalize()
}

// WedgeSpan is the largest angle between center and any negated contact normal.
func WedgeSpan(center r2.Point, contacts []SweepHit) float64 {
	span := 0.0
	for _, c := range contacts {
		if a := Angle(Negate(c.Normal), center); a > span {
			span = a
		}
	}
	return span
}

// EscapeContact picks the contact whose negated normal is closest in angle
// to velocity. ok is false when no angle compares, e.g. with NaN normals.
func EscapeContact(velocity r2.Point, contacts []SweepHit) (hit SweepHit, ok bool) {
	best := math.MaxFloat64
	for _, c := range contacts {
		if a := Angle(velocity, Negate(c.Normal)); a < best {
			best, hit, ok = a, c, true
		}
	}
	return hit, ok
}
