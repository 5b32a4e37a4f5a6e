package physics

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBody(t *testing.T) {
	b, err := NewBody(r2.Point{X: 1, Y: 2}, 0.5, r2.Point{X: 3, Y: 4}, ResponseReflect)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 5.0, b.Speed())

	_, err = NewBody(r2.Point{}, 0, r2.Point{}, ResponseProject)
	assert.ErrorIs(t, err, ErrInvalidRadius)

	_, err = NewBody(r2.Point{}, 1, r2.Point{}, Response(7))
	assert.ErrorIs(t, err, ErrUnknownResponse)
}

func TestPlace(t *testing.T) {
	thin := SweepHit{
		Point:    r2.Point{X: 0.5, Y: 0},
		Centroid: r2.Point{X: 0.5, Y: 0},
		Normal:   r2.Point{X: -1, Y: 0},
	}
	assert.Equal(t, r2.Point{X: 0, Y: 0}, Place(thin, 0.5))

	resting := SweepHit{
		Point:    r2.Point{X: 3, Y: 0},
		Centroid: r2.Point{X: 2, Y: 0},
		Normal:   r2.Point{X: -1, Y: 0},
	}
	assert.Equal(t, r2.Point{X: 2, Y: 0}, Place(resting, 1))
}

func TestClassifyAndSort(t *testing.T) {
	hits := []SweepHit{
		{Distance: 2, Collider: "far"},
		{Distance: 0, Collider: "a"},
		{Distance: 1, Collider: "near"},
		{Distance: 0, Collider: "b"},
	}
	SortHits(hits)
	assert.Equal(t, ColliderID("a"), hits[0].Collider)
	assert.Equal(t, ColliderID("b"), hits[1].Collider)
	assert.Equal(t, ColliderID("near"), hits[2].Collider)

	touching, first, ok := EpsilonClassifier{Epsilon: DefaultEpsilon}.Classify(hits)
	require.True(t, ok)
	assert.Len(t, touching, 2)
	assert.Equal(t, ColliderID("near"), first.Collider)

	_, _, ok = EpsilonClassifier{Epsilon: DefaultEpsilon}.Classify(hits[:2])
	assert.False(t, ok)
}

func TestRemoveHitsDropsFirstOccurrence(t *testing.T) {
	a := SweepHit{Collider: "a"}
	b := SweepHit{Collider: "b"}
	set := removeHits([]SweepHit{a, b, a}, []SweepHit{a})
	assert.Equal(t, []SweepHit{b, a}, set)
}
