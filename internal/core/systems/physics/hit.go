package physics

import (
	"sort"

	"github.com/golang/geo/r2"
)

// SweepHit is one contact reported by a SpatialQuery.
type SweepHit struct {
	// Distance travelled along the sweep before contact; 0 means already touching.
	Distance float64
	// Point is the contact point on the collider surface.
	Point r2.Point
	// Normal is the unit surface normal pointing away from the collider.
	Normal r2.Point
	// Centroid is the circle centre at the moment of contact.
	Centroid r2.Point
	Collider ColliderID
}

// HasCollider reports whether the hit carries a collider reference.
func (h SweepHit) HasCollider() bool { return h.Collider != "" }

// SortHits orders hits by ascending distance, keeping ties in input order.
func SortHits(hits []SweepHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
}

// EpsilonClassifier treats hits within Epsilon of zero distance as touching.
type EpsilonClassifier struct {
	Epsilon float64
}

var _ ContactClassifier = EpsilonClassifier{}

func (c EpsilonClassifier) Classify(hits []SweepHit) (touching []SweepHit, first SweepHit, hasFirst bool) {
	for _, h := range hits {
		switch {
		case NearlyZero(h.Distance, c.Epsilon):
			touching = append(touching, h)
		case !hasFirst && h.Distance > c.Epsilon:
			first, hasFirst = h, true
		}
	}
	return touching, first, hasFirst
}

// removeHits drops the first occurrence of every target from set.
func removeHits(set []SweepHit, targets []SweepHit) []SweepHit {
	for _, t := range targets {
		for i := range set {
			if set[i] == t {
				set = append(set[:i], set[i+1:]...)
				break
			}
		}
	}
	return set
}
