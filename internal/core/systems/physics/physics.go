package physics

import (
	"math"

	"github.com/golang/geo/r2"
)

// DefaultEpsilon is the tolerance below which distances, durations and
// speeds are treated as zero.
const DefaultEpsilon = 1e-9

// angleFloor is the magnitude product below which two vectors have no
// meaningful angle between them.
const angleFloor = 1e-15

// Angle returns the unsigned angle in radians between a and b, in [0, π].
// Zero-length vectors yield 0.
func Angle(a, b r2.Point) float64 {
	den := math.Sqrt(a.Dot(a) * b.Dot(b))
	if den < angleFloor {
		return 0
	}
	cos := a.Dot(b) / den
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// Distance computes the Euclidean distance between two points.
func Distance(a, b r2.Point) float64 { return a.Sub(b).Norm() }

// NearlyZero reports whether |x| is within eps of zero.
func NearlyZero(x, eps float64) bool { return math.Abs(x) <= eps }

// Negate returns -v.
func Negate(v r2.Point) r2.Point { return r2.Point{X: -v.X, Y: -v.Y} }

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
