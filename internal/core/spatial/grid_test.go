package spatial

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sweep/internal/core/systems/physics"
)

func mustInsert(t testing.TB, g *Grid, s Shape) physics.ColliderID {
	t.Helper()
	id, err := g.Insert(s)
	require.NoError(t, err)
	return id
}

// arena builds a closed 20x20 room with two pillars.
func arena(t testing.TB) *Grid {
	g := NewGrid(WithCellSize(2))
	mustInsert(t, g, Segment{A: r2.Point{X: -10, Y: -10}, B: r2.Point{X: 10, Y: -10}})
	mustInsert(t, g, Segment{A: r2.Point{X: 10, Y: -10}, B: r2.Point{X: 10, Y: 10}})
	mustInsert(t, g, Segment{A: r2.Point{X: 10, Y: 10}, B: r2.Point{X: -10, Y: 10}})
	mustInsert(t, g, Segment{A: r2.Point{X: -10, Y: 10}, B: r2.Point{X: -10, Y: -10}})
	mustInsert(t, g, Circle{Center: r2.Point{X: 3, Y: 2}, Radius: 1.5})
	mustInsert(t, g, Box{Min: r2.Point{X: -6, Y: -4}, Max: r2.Point{X: -3, Y: -1}})
	return g
}

func TestGridSweepOrdersByInsertion(t *testing.T) {
	g := NewGrid(WithCellSize(1))
	far := mustInsert(t, g, Segment{A: r2.Point{X: 8, Y: -5}, B: r2.Point{X: 8, Y: 5}})
	near := mustInsert(t, g, Segment{A: r2.Point{X: 4, Y: -5}, B: r2.Point{X: 4, Y: 5}})

	for i := 0; i < 5; i++ {
		hits := g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 10)
		require.Len(t, hits, 2)
		assert.Equal(t, far, hits[0].Collider)
		assert.Equal(t, near, hits[1].Collider)
	}
}

func TestGridBroadPhaseSkipsDistantCells(t *testing.T) {
	g := NewGrid(WithCellSize(1))
	mustInsert(t, g, Circle{Center: r2.Point{X: 50, Y: 50}, Radius: 1})

	assert.Empty(t, g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 10))
	assert.Len(t, g.SweepCircle(r2.Point{X: 45, Y: 50}, 0.5, r2.Point{X: 1}, 10), 1)
}

func TestGridWideCollidersAlwaysChecked(t *testing.T) {
	g := NewGrid(WithCellSize(1), WithMaxCellScan(4))
	id := mustInsert(t, g, Segment{A: r2.Point{X: 3, Y: -100}, B: r2.Point{X: 3, Y: 100}})

	hits := g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, id, hits[0].Collider)
	assert.InDelta(t, 2.5, hits[0].Distance, 1e-12)
}

func TestGridExcluding(t *testing.T) {
	g := NewGrid()
	self := mustInsert(t, g, Circle{Center: r2.Point{}, Radius: 0.5})
	wall := mustInsert(t, g, Segment{A: r2.Point{X: 3, Y: -5}, B: r2.Point{X: 3, Y: 5}})

	all := g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5)
	assert.Len(t, all, 2)

	hits := g.Excluding(self).SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, wall, hits[0].Collider)
}

func TestGridMoveAndRemove(t *testing.T) {
	g := NewGrid(WithCellSize(1))
	id := mustInsert(t, g, Circle{Center: r2.Point{X: 20}, Radius: 1})
	box := mustInsert(t, g, Box{Min: r2.Point{X: -1, Y: 5}, Max: r2.Point{X: 1, Y: 6}})

	assert.Empty(t, g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5))

	require.NoError(t, g.Move(id, r2.Point{X: 3}))
	hits := g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.5, hits[0].Distance, 1e-12)

	assert.ErrorIs(t, g.Move(box, r2.Point{}), ErrNotMovable)
	assert.ErrorIs(t, g.Move("nope", r2.Point{}), ErrUnknownCollider)

	assert.True(t, g.Remove(id))
	assert.False(t, g.Remove(id))
	assert.Empty(t, g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5))
	assert.Equal(t, 1, g.Len())
}

func TestGridSnapshotIsIndependent(t *testing.T) {
	g := NewGrid(WithCellSize(1))
	id := mustInsert(t, g, Circle{Center: r2.Point{X: 3}, Radius: 1})
	snap := g.Snapshot()

	require.NoError(t, g.Move(id, r2.Point{X: 30}))

	assert.Empty(t, g.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5))
	assert.Len(t, snap.SweepCircle(r2.Point{}, 0.5, r2.Point{X: 1}, 5), 1)
}

func TestGridInsertRejectsInvalidShape(t *testing.T) {
	g := NewGrid()
	_, err := g.Insert(Circle{Radius: -1})
	assert.ErrorIs(t, err, ErrInvalidShape)
	_, err = g.Insert(nil)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestGridOverlaps(t *testing.T) {
	g := arena(t)
	assert.Empty(t, g.Overlaps(r2.Point{}, 0.5))
	assert.Len(t, g.Overlaps(r2.Point{X: 3, Y: 0.8}, 0.5), 1)
	assert.Len(t, g.Overlaps(r2.Point{X: 9.8, Y: 9.8}, 0.5), 2)
}

func TestResolverNeverLeavesBodyOverlapping(t *testing.T) {
	g := arena(t)

	for _, response := range []physics.Response{physics.ResponseReflect, physics.ResponseProject} {
		resolver := physics.NewResolver(g)
		for i := 0; i < 24; i++ {
			angle := float64(i) * 2 * math.Pi / 24
			b := physics.Body{
				ID:       "probe",
				Position: r2.Point{X: 0, Y: -6},
				Radius:   0.4,
				Velocity: r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Mul(12),
				Response: response,
			}
			for tick := 0; tick < 120; tick++ {
				var trace physics.Trace
				b, trace = resolver.Resolve(b, 1.0/30)
				require.Empty(t, g.Overlaps(b.Position, b.Radius),
					"response=%s angle=%d tick=%d pos=%v outcome=%s", response, i, tick, b.Position, trace.Outcome)
				require.LessOrEqual(t, math.Abs(b.Position.X), 10.0)
				require.LessOrEqual(t, math.Abs(b.Position.Y), 10.0)
			}
		}
	}
}

func TestResolverSlidesAlongWall(t *testing.T) {
	g := NewGrid()
	mustInsert(t, g, Segment{A: r2.Point{X: -50, Y: 0}, B: r2.Point{X: 50, Y: 0}})
	resolver := physics.NewResolver(g)

	b := physics.Body{
		ID:       "slider",
		Position: r2.Point{X: 0, Y: 0.5},
		Radius:   0.5,
		Velocity: r2.Point{X: 3, Y: -4},
		Response: physics.ResponseProject,
	}
	b, _ = resolver.Resolve(b, 1)

	assert.InDelta(t, 0.5, b.Position.Y, 1e-9)
	assert.InDelta(t, 3, b.Position.X, 1e-9)
	assert.InDelta(t, 0, b.Velocity.Y, 1e-9)
	assert.InDelta(t, 3, b.Velocity.X, 1e-9)
}

func TestResolverBouncesOffWall(t *testing.T) {
	g := NewGrid()
	mustInsert(t, g, Segment{A: r2.Point{X: 5, Y: -50}, B: r2.Point{X: 5, Y: 50}})
	resolver := physics.NewResolver(g)

	b := physics.Body{
		ID:       "bullet",
		Position: r2.Point{},
		Radius:   0.5,
		Velocity: r2.Point{X: 10},
		Response: physics.ResponseReflect,
	}
	b, trace := resolver.Resolve(b, 1)

	assert.InDelta(t, -10, b.Velocity.X, 1e-9)
	// Back from the wall for the 0.45 of dt it took to reach it.
	assert.InDelta(t, 0, b.Position.X, 1e-9)
	require.NotEmpty(t, trace.Contacts)
	assert.InDelta(t, 5, trace.Contacts[0].Point.X, 1e-12)
}

func BenchmarkGridSweep(b *testing.B) {
	g := arena(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.SweepCircle(r2.Point{X: 0, Y: -6}, 0.4, r2.Point{X: 0.6, Y: 0.8}, 2)
	}
}
