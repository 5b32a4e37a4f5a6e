package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/systems/physics"
)

// Shape is a collider outline that a circle can be swept against.
type Shape interface {
	// Bounds is the axis-aligned bounding rectangle of the shape.
	Bounds() r2.Rect
	// Sweep moves a circle of the given radius from origin along the unit
	// direction dir for up to distance and reports the earliest contact.
	// A circle already within skin of the shape yields a distance-0 hit
	// when dir is zero or points into the shape, and no hit otherwise.
	Sweep(origin r2.Point, radius float64, dir r2.Point, distance, skin float64) (physics.SweepHit, bool)
	Validate() error
}

// Circle is a round collider, static or moved each tick by its owner.
type Circle struct {
	Center r2.Point
	Radius float64
}

// Segment is a two-sided line collider.
type Segment struct {
	A, B r2.Point
}

// Box is an axis-aligned solid rectangle.
type Box struct {
	Min, Max r2.Point
}

var (
	_ Shape = Circle{}
	_ Shape = Segment{}
	_ Shape = Box{}
)

func (c Circle) Bounds() r2.Rect {
	return r2.RectFromCenterSize(c.Center, r2.Point{X: 2 * c.Radius, Y: 2 * c.Radius})
}

func (c Circle) Validate() error {
	if !(c.Radius > 0) {
		return fmt.Errorf("%w: circle radius %v", ErrInvalidShape, c.Radius)
	}
	return nil
}

func (c Circle) Sweep(origin r2.Point, radius float64, dir r2.Point, distance, skin float64) (physics.SweepHit, bool) {
	away := origin.Sub(c.Center)
	if away.Norm()-(c.Radius+radius) <= skin {
		n := away.Normalize()
		if n == (r2.Point{}) {
			n = physics.Negate(dir)
		}
		return contact(c.Center.Add(n.Mul(c.Radius)), n, origin, dir)
	}

	t, ok := sweepDisc(origin, dir, c.Center, c.Radius+radius, distance)
	if !ok {
		return physics.SweepHit{}, false
	}
	centroid := origin.Add(dir.Mul(t))
	n := centroid.Sub(c.Center).Normalize()
	return physics.SweepHit{
		Distance: t,
		Point:    c.Center.Add(n.Mul(c.Radius)),
		Normal:   n,
		Centroid: centroid,
	}, true
}

func (s Segment) Bounds() r2.Rect {
	return r2.RectFromPoints(s.A, s.B)
}

func (s Segment) Validate() error {
	if s.A == s.B {
		return fmt.Errorf("%w: degenerate segment at %v", ErrInvalidShape, s.A)
	}
	return nil
}

func (s Segment) Sweep(origin r2.Point, radius float64, dir r2.Point, distance, skin float64) (physics.SweepHit, bool) {
	closest := closestOnSegment(origin, s.A, s.B)
	away := origin.Sub(closest)
	if away.Norm()-radius <= skin {
		n := away.Normalize()
		if n == (r2.Point{}) {
			n = s.B.Sub(s.A).Ortho().Normalize()
			if n.Dot(dir) > 0 {
				n = physics.Negate(n)
			}
		}
		return contact(closest, n, origin, dir)
	}
	return s.sweepAhead(origin, radius, dir, distance)
}

// sweepAhead finds the first contact of a circle that starts clear of the
// segment: against the face facing the origin, or against either end cap.
func (s Segment) sweepAhead(origin r2.Point, radius float64, dir r2.Point, distance float64) (physics.SweepHit, bool) {
	var best physics.SweepHit
	found := false
	keep := func(h physics.SweepHit) {
		if !found || h.Distance < best.Distance {
			best, found = h, true
		}
	}

	ab := s.B.Sub(s.A)
	lenSq := ab.Dot(ab)
	if lenSq > 0 {
		n := ab.Ortho().Normalize()
		side := origin.Sub(s.A).Dot(n)
		if side < 0 {
			n, side = physics.Negate(n), -side
		}
		if approach := dir.Dot(n); approach < 0 {
			t := (side - radius) / -approach
			if t >= 0 && t <= distance {
				centroid := origin.Add(dir.Mul(t))
				u := centroid.Sub(s.A).Dot(ab) / lenSq
				if u >= 0 && u <= 1 {
					keep(physics.SweepHit{
						Distance: t,
						Point:    s.A.Add(ab.Mul(u)),
						Normal:   n,
						Centroid: centroid,
					})
				}
			}
		}
	}

	for _, end := range [2]r2.Point{s.A, s.B} {
		if t, ok := sweepDisc(origin, dir, end, radius, distance); ok {
			centroid := origin.Add(dir.Mul(t))
			keep(physics.SweepHit{
				Distance: t,
				Point:    end,
				Normal:   centroid.Sub(end).Normalize(),
				Centroid: centroid,
			})
		}
	}
	return best, found
}

func (b Box) Bounds() r2.Rect {
	return r2.RectFromPoints(b.Min, b.Max)
}

func (b Box) Validate() error {
	if !(b.Max.X > b.Min.X) || !(b.Max.Y > b.Min.Y) {
		return fmt.Errorf("%w: box %v..%v", ErrInvalidShape, b.Min, b.Max)
	}
	return nil
}

func (b Box) edges() [4]Segment {
	lo, hi := b.Min, b.Max
	return [4]Segment{
		{A: lo, B: r2.Point{X: hi.X, Y: lo.Y}},
		{A: r2.Point{X: hi.X, Y: lo.Y}, B: hi},
		{A: hi, B: r2.Point{X: lo.X, Y: hi.Y}},
		{A: r2.Point{X: lo.X, Y: hi.Y}, B: lo},
	}
}

func (b Box) Sweep(origin r2.Point, radius float64, dir r2.Point, distance, skin float64) (physics.SweepHit, bool) {
	closest := b.Bounds().ClampPoint(origin)
	if closest == origin {
		// Centre inside the box: leave through the nearest face.
		point, n := b.nearestFace(origin)
		return physics.SweepHit{Point: point, Normal: n, Centroid: origin}, true
	}
	away := origin.Sub(closest)
	if away.Norm()-radius <= skin {
		return contact(closest, away.Normalize(), origin, dir)
	}

	var best physics.SweepHit
	found := false
	for _, edge := range b.edges() {
		if h, ok := edge.sweepAhead(origin, radius, dir, distance); ok && (!found || h.Distance < best.Distance) {
			best, found = h, true
		}
	}
	return best, found
}

func (b Box) nearestFace(p r2.Point) (r2.Point, r2.Point) {
	faces := [4]struct {
		gap    float64
		point  r2.Point
		normal r2.Point
	}{
		{p.X - b.Min.X, r2.Point{X: b.Min.X, Y: p.Y}, r2.Point{X: -1}},
		{b.Max.X - p.X, r2.Point{X: b.Max.X, Y: p.Y}, r2.Point{X: 1}},
		{p.Y - b.Min.Y, r2.Point{X: p.X, Y: b.Min.Y}, r2.Point{Y: -1}},
		{b.Max.Y - p.Y, r2.Point{X: p.X, Y: b.Max.Y}, r2.Point{Y: 1}},
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.gap < best.gap {
			best = f
		}
	}
	return best.point, best.normal
}

// contact reports a distance-0 hit for a circle already resting against a
// shape, unless it is moving along or away from the surface. Every shape here
// is convex, so the gap can only keep growing in that case.
func contact(point, normal, origin, dir r2.Point) (physics.SweepHit, bool) {
	if dir != (r2.Point{}) && dir.Dot(normal) >= 0 {
		return physics.SweepHit{}, false
	}
	return physics.SweepHit{Point: point, Normal: normal, Centroid: origin}, true
}

// sweepDisc returns how far a point travels along the unit dir from origin
// before coming within reach of center, if that happens within maxDist.
func sweepDisc(origin, dir, center r2.Point, reach, maxDist float64) (float64, bool) {
	m := origin.Sub(center)
	b := m.Dot(dir)
	c := m.Dot(m) - reach*reach
	if c > 0 && b >= 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		t = 0
	}
	if t > maxDist {
		return 0, false
	}
	return t, true
}

func closestOnSegment(p, a, b r2.Point) r2.Point {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	u := p.Sub(a).Dot(ab) / lenSq
	switch {
	case u <= 0:
		return a
	case u >= 1:
		return b
	default:
		return a.Add(ab.Mul(u))
	}
}
