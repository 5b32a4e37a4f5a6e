package spatial

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"github.com/zeusync/sweep/pkg/generic"
)

const (
	DefaultCellSize    = 4.0
	DefaultContactSkin = 1e-6
	DefaultMaxCellScan = 256
)

type idSet = map[physics.ColliderID]struct{}

// candidateSets recycles the broad-phase scratch set of each sweep.
var candidateSets = generic.NewPool(
	func() idSet { return make(idSet, 16) },
	func(s idSet) { clear(s) },
)

type entry struct {
	shape Shape
	seq   uint64
	cells []uint64
	// wide entries span too many cells to index and are checked on every sweep.
	wide bool
}

// Grid is a uniform hash grid of colliders. Cell coordinates are hashed into
// a sparse map, so the world has no fixed extent.
//
// Reads (SweepCircle, Overlaps) may run concurrently; mutations take the
// write lock. Callers that move colliders while other goroutines sweep should
// sweep against a Snapshot instead.
type Grid struct {
	mu        sync.RWMutex
	cellSize  float64
	skin      float64
	maxScan   int
	seq       uint64
	colliders map[physics.ColliderID]*entry
	cells     map[uint64][]physics.ColliderID
	wide      map[physics.ColliderID]struct{}
}

type Option func(*Grid)

func WithCellSize(size float64) Option {
	return func(g *Grid) {
		if size > 0 {
			g.cellSize = size
		}
	}
}

func WithContactSkin(skin float64) Option {
	return func(g *Grid) {
		if skin >= 0 {
			g.skin = skin
		}
	}
}

// WithMaxCellScan caps how many cells a single insert or sweep may touch
// before falling back to the wide list or a full scan.
func WithMaxCellScan(n int) Option {
	return func(g *Grid) {
		if n > 0 {
			g.maxScan = n
		}
	}
}

func NewGrid(opts ...Option) *Grid {
	g := &Grid{
		cellSize:  DefaultCellSize,
		skin:      DefaultContactSkin,
		maxScan:   DefaultMaxCellScan,
		colliders: make(map[physics.ColliderID]*entry),
		cells:     make(map[uint64][]physics.ColliderID),
		wide:      make(map[physics.ColliderID]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ physics.SpatialQuery = (*Grid)(nil)

// Insert registers a collider and returns its id.
func (g *Grid) Insert(shape Shape) (physics.ColliderID, error) {
	if shape == nil {
		return "", fmt.Errorf("%w: nil shape", ErrInvalidShape)
	}
	if err := shape.Validate(); err != nil {
		return "", err
	}
	id := physics.ColliderID(uuid.NewString())

	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	e := &entry{shape: shape, seq: g.seq}
	g.colliders[id] = e
	g.indexLocked(id, e)
	return id, nil
}

// Remove drops a collider. It reports whether the id was known.
func (g *Grid) Remove(id physics.ColliderID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.colliders[id]
	if !ok {
		return false
	}
	g.unindexLocked(id, e)
	delete(g.colliders, id)
	return true
}

// Move recentres a circle collider.
func (g *Grid) Move(id physics.ColliderID, center r2.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.colliders[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollider, id)
	}
	c, ok := e.shape.(Circle)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotMovable, e.shape)
	}
	if c.Center == center {
		return nil
	}
	g.unindexLocked(id, e)
	c.Center = center
	e.shape = c
	g.indexLocked(id, e)
	return nil
}

// Shape returns the current outline of a collider.
func (g *Grid) Shape(id physics.ColliderID) (Shape, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.colliders[id]
	if !ok {
		return nil, false
	}
	return e.shape, true
}

// Len returns the number of colliders.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.colliders)
}

// Skin is the distance under which a circle counts as already touching.
func (g *Grid) Skin() float64 { return g.skin }

// Each calls fn for every collider in insertion order.
func (g *Grid) Each(fn func(id physics.ColliderID, shape Shape)) {
	g.mu.RLock()
	all := make(idSet, len(g.colliders))
	g.allLocked(all)
	ids := g.orderedLocked(all)
	shapes := make([]Shape, len(ids))
	for i, id := range ids {
		shapes[i] = g.colliders[id].shape
	}
	g.mu.RUnlock()

	for i, id := range ids {
		fn(id, shapes[i])
	}
}

// SweepCircle implements physics.SpatialQuery. Hits come back in collider
// insertion order, one per collider. A collider the circle already touches
// is reported at distance 0 only when direction is zero or points into it;
// sliding along or leaving a surface reports nothing for it.
func (g *Grid) SweepCircle(origin r2.Point, radius float64, direction r2.Point, distance float64) []physics.SweepHit {
	return g.sweep(origin, radius, direction, distance, nil)
}

// Excluding returns a query over g that ignores the given colliders, e.g. a
// body's own collider.
func (g *Grid) Excluding(ids ...physics.ColliderID) physics.SpatialQuery {
	skip := make(map[physics.ColliderID]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			skip[id] = struct{}{}
		}
	}
	return physics.SpatialQueryFunc(func(origin r2.Point, radius float64, direction r2.Point, distance float64) []physics.SweepHit {
		return g.sweep(origin, radius, direction, distance, skip)
	})
}

// Overlaps lists the colliders a circle at center currently penetrates by
// more than the contact skin.
func (g *Grid) Overlaps(center r2.Point, radius float64) []physics.ColliderID {
	hits := g.SweepCircle(center, radius, r2.Point{}, 0)
	var out []physics.ColliderID
	for _, h := range hits {
		if Penetration(center, radius, h) > g.skin {
			out = append(out, h.Collider)
		}
	}
	return out
}

// Penetration is how deep a circle at center reaches past the contact point
// of hit along its normal. Non-positive values mean no overlap.
func Penetration(center r2.Point, radius float64, hit physics.SweepHit) float64 {
	return radius - center.Sub(hit.Point).Dot(hit.Normal)
}

// Snapshot returns an independent copy of the grid for read-only use while
// g keeps changing.
func (g *Grid) Snapshot() *Grid {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &Grid{
		cellSize:  g.cellSize,
		skin:      g.skin,
		maxScan:   g.maxScan,
		seq:       g.seq,
		colliders: make(map[physics.ColliderID]*entry, len(g.colliders)),
		cells:     make(map[uint64][]physics.ColliderID, len(g.cells)),
		wide:      make(map[physics.ColliderID]struct{}, len(g.wide)),
	}
	for id, e := range g.colliders {
		cp := *e
		cp.cells = append([]uint64(nil), e.cells...)
		s.colliders[id] = &cp
	}
	for key, ids := range g.cells {
		s.cells[key] = append([]physics.ColliderID(nil), ids...)
	}
	for id := range g.wide {
		s.wide[id] = struct{}{}
	}
	return s
}

func (g *Grid) sweep(origin r2.Point, radius float64, direction r2.Point, distance float64, skip map[physics.ColliderID]struct{}) []physics.SweepHit {
	dir := direction.Normalize()
	if dir == (r2.Point{}) || !(distance > 0) {
		dir, distance = r2.Point{}, 0
	}
	bounds := r2.RectFromPoints(origin, origin.Add(dir.Mul(distance))).ExpandedByMargin(radius + g.skin)

	g.mu.RLock()
	candidates := candidateSets.Get()
	g.candidatesLocked(bounds, candidates)
	ids := g.orderedLocked(candidates)
	candidateSets.Put(candidates)
	shapes := make([]Shape, 0, len(ids))
	kept := ids[:0]
	for _, id := range ids {
		if _, ok := skip[id]; ok {
			continue
		}
		kept = append(kept, id)
		shapes = append(shapes, g.colliders[id].shape)
	}
	g.mu.RUnlock()

	var hits []physics.SweepHit
	for i, id := range kept {
		if h, ok := shapes[i].Sweep(origin, radius, dir, distance, g.skin); ok {
			h.Collider = id
			hits = append(hits, h)
		}
	}
	return hits
}

// candidatesLocked adds to out every collider indexed in a cell bounds overlaps.
func (g *Grid) candidatesLocked(bounds r2.Rect, out idSet) {
	keys, ok := g.cellKeys(bounds)
	if !ok {
		g.allLocked(out)
		return
	}
	for _, key := range keys {
		for _, id := range g.cells[key] {
			out[id] = struct{}{}
		}
	}
	for id := range g.wide {
		out[id] = struct{}{}
	}
}

func (g *Grid) allLocked(out idSet) {
	for id := range g.colliders {
		out[id] = struct{}{}
	}
}

// orderedLocked sorts ids by insertion sequence so that sweeps are
// deterministic regardless of map iteration order.
func (g *Grid) orderedLocked(set idSet) []physics.ColliderID {
	ids := make([]physics.ColliderID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.colliders[ids[i]].seq < g.colliders[ids[j]].seq
	})
	return ids
}

func (g *Grid) indexLocked(id physics.ColliderID, e *entry) {
	keys, ok := g.cellKeys(e.shape.Bounds().ExpandedByMargin(g.skin))
	if !ok {
		e.wide, e.cells = true, nil
		g.wide[id] = struct{}{}
		return
	}
	e.wide, e.cells = false, keys
	for _, key := range keys {
		g.cells[key] = append(g.cells[key], id)
	}
}

func (g *Grid) unindexLocked(id physics.ColliderID, e *entry) {
	if e.wide {
		delete(g.wide, id)
		return
	}
	for _, key := range e.cells {
		ids := g.cells[key]
		for i, other := range ids {
			if other == id {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(g.cells, key)
		} else {
			g.cells[key] = ids
		}
	}
	e.cells = nil
}

// cellKeys lists the hashed keys of every cell bounds overlaps. It reports
// false when bounds cover more than maxScan cells.
func (g *Grid) cellKeys(bounds r2.Rect) ([]uint64, bool) {
	lo, hi := bounds.Lo(), bounds.Hi()
	x0, y0 := g.cellOf(lo.X), g.cellOf(lo.Y)
	x1, y1 := g.cellOf(hi.X), g.cellOf(hi.Y)
	w, h := x1-x0+1, y1-y0+1
	if w <= 0 || h <= 0 || w > int64(g.maxScan) || h > int64(g.maxScan) || w*h > int64(g.maxScan) {
		return nil, false
	}
	keys := make([]uint64, 0, w*h)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			keys = append(keys, cellKey(x, y))
		}
	}
	return keys, true
}

func (g *Grid) cellOf(v float64) int64 {
	c := math.Floor(v / g.cellSize)
	if c > math.MaxInt32 {
		return math.MaxInt32
	}
	if c < math.MinInt32 {
		return math.MinInt32
	}
	return int64(c)
}

func cellKey(x, y int64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(x))
	binary.LittleEndian.PutUint64(buf[8:], uint64(y))
	return xxhash.Sum64(buf[:])
}
