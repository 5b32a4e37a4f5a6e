package simulation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/config"
	"github.com/zeusync/sweep/internal/core/events/bus"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/spatial"
	"github.com/zeusync/sweep/internal/core/systems"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"github.com/zeusync/sweep/pkg/concurrent"
)

// World owns every moving body and advances them in fixed ticks. Bodies are
// created and destroyed only at tick boundaries, never while the resolver
// is running.
//
// All methods are safe for concurrent use. Events are published after the
// world lock is released, so handlers may call back into the world.
type World struct {
	mu sync.Mutex

	cfg      *config.Config
	grid     *spatial.Grid
	resolver *physics.Resolver
	bus      bus.EventBus
	logger   log.Log

	characterResponse  physics.Response
	projectileResponse physics.Response

	entities map[physics.BodyID]*Entity
	// order keeps iteration deterministic: bodies resolve in spawn order.
	order    []physics.BodyID
	spawns   []*Entity
	destroys []destroyRequest

	tick  uint64
	clock float64
	state systems.StateIdentity

	stats stats
}

type destroyRequest struct {
	id     physics.BodyID
	reason DestroyReason
}

type stats struct {
	ticks       atomic.Uint64
	resolves    atomic.Uint64
	boundAborts atomic.Uint64
	spawned     atomic.Uint64
	destroyed   atomic.Uint64
	busErrors   atomic.Uint64

	totalNanos atomic.Int64
	maxNanos   atomic.Int64
	lastUnix   atomic.Int64
}

// Stats is a snapshot of the world counters.
type Stats struct {
	Ticks       uint64 `json:"ticks"`
	Resolves    uint64 `json:"resolves"`
	BoundAborts uint64 `json:"bound_aborts"`
	Spawned     uint64 `json:"spawned"`
	Destroyed   uint64 `json:"destroyed"`
	Alive       int    `json:"alive"`
}

var _ systems.System = (*World)(nil)

// NewWorld validates cfg and loads the arena colliders into grid. The
// resolver's own query is never used directly: every body sweeps through
// a view of grid that hides its own collider.
func NewWorld(cfg *config.Config, grid *spatial.Grid, resolver *physics.Resolver, eb bus.EventBus, logger log.Log) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	charResp, err := physics.ParseResponse(cfg.Character.Response)
	if err != nil {
		return nil, err
	}
	projResp, err := physics.ParseResponse(cfg.Projectile.Response)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	if eb == nil {
		eb = bus.New()
	}

	shapes, err := cfg.Arena.Shapes()
	if err != nil {
		return nil, err
	}
	for _, s := range shapes {
		if _, err := grid.Insert(s); err != nil {
			return nil, fmt.Errorf("load arena: %w", err)
		}
	}

	return &World{
		cfg:                cfg,
		grid:               grid,
		resolver:           resolver,
		bus:                eb,
		logger:             logger.With(log.String("system", "simulation")),
		characterResponse:  charResp,
		projectileResponse: projResp,
		entities:           make(map[physics.BodyID]*Entity),
	}, nil
}

func (w *World) Name() string { return "simulation" }

func (w *World) Initialize(_ context.Context) error {
	w.mu.Lock()
	w.state = systems.StateRunning
	w.mu.Unlock()
	w.logger.Info("simulation initialized",
		log.Int("tick_rate", w.cfg.TickRate),
		log.Bool("parallel", w.cfg.Parallel),
		log.Int("colliders", w.grid.Len()),
	)
	return nil
}

func (w *World) Shutdown(_ context.Context) error {
	w.mu.Lock()
	w.state = systems.StateShutdown
	w.mu.Unlock()
	w.logger.Info("simulation shut down", log.Uint64("ticks", w.stats.ticks.Load()))
	return nil
}

// FixedUpdate implements systems.System.
func (w *World) FixedUpdate(fixedDeltaTime float64) error {
	w.Step(fixedDeltaTime)
	return nil
}

// Run steps the world every TickInterval with a fixed delta until ctx is done.
func (w *World) Run(ctx context.Context) error {
	if err := w.Initialize(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(w.cfg.TickInterval())
	defer ticker.Stop()

	dt := w.cfg.FixedDelta()
	for {
		select {
		case <-ctx.Done():
			return w.Shutdown(context.WithoutCancel(ctx))
		case <-ticker.C:
			w.Step(dt)
		}
	}
}

// Grid exposes the collider index, e.g. for rendering.
func (w *World) Grid() *spatial.Grid { return w.grid }

// SpawnCharacter queues a character at pos. It becomes active at the next
// tick boundary.
func (w *World) SpawnCharacter(pos r2.Point) (physics.BodyID, error) {
	body, err := physics.NewBody(pos, w.cfg.Character.Radius, r2.Point{}, w.characterResponse)
	if err != nil {
		return "", err
	}
	if hits := w.grid.Overlaps(pos, body.Radius); len(hits) > 0 {
		return "", fmt.Errorf("%w: %v", ErrSpawnBlocked, pos)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawns = append(w.spawns, &Entity{
		Kind:     KindCharacter,
		Body:     body,
		Facing:   r2.Point{X: 1},
		LastFire: math.Inf(-1),
	})
	return body.ID, nil
}

// SetIntent replaces a character's movement input.
func (w *World) SetIntent(id physics.BodyID, intent Intent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.characterLocked(id)
	if err != nil {
		return err
	}
	e.Intent = intent
	if !intent.IsZero() {
		e.Facing = intent.Vector().Normalize()
	}
	return nil
}

// Fire launches a projectile from a character towards direction. The
// projectile appears at the next tick boundary.
func (w *World) Fire(id physics.BodyID, direction r2.Point) (physics.BodyID, error) {
	dir := direction.Normalize()
	if dir == (r2.Point{}) || !finite(dir) {
		return "", fmt.Errorf("%w: %v", ErrInvalidDirection, direction)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	owner, err := w.characterLocked(id)
	if err != nil {
		return "", err
	}
	if !(w.clock-owner.LastFire > w.cfg.Weapon.Cooldown) {
		return "", ErrCooldown
	}

	body, err := physics.NewBody(owner.Body.Position, w.cfg.Projectile.Radius, dir.Mul(w.cfg.Projectile.Speed), w.projectileResponse)
	if err != nil {
		return "", err
	}
	owner.LastFire = w.clock
	w.spawns = append(w.spawns, &Entity{
		Kind:   KindProjectile,
		Body:   body,
		Facing: dir,
		Owner:  owner.Body.ID,
	})
	return body.ID, nil
}

// FireFacing fires along the character's facing direction.
func (w *World) FireFacing(id physics.BodyID) (physics.BodyID, error) {
	w.mu.Lock()
	e, err := w.characterLocked(id)
	var facing r2.Point
	if err == nil {
		facing = e.Facing
	}
	w.mu.Unlock()
	if err != nil {
		return "", err
	}
	return w.Fire(id, facing)
}

// Despawn queues a body for removal at the next tick boundary.
func (w *World) Despawn(id physics.BodyID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok && !w.pendingLocked(id) {
		return fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	w.destroys = append(w.destroys, destroyRequest{id: id, reason: ReasonRemoved})
	return nil
}

// Entity returns a copy of a live body.
func (w *World) Entity(id physics.BodyID) (Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Entities returns copies of every live body in spawn order.
func (w *World) Entities() []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entity, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, *w.entities[id])
	}
	return out
}

// Tick returns the number of completed ticks.
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Step advances the world by dt:
//  1. spawn and destroy requests made since the last tick are applied;
//  2. character velocities are set from their intents;
//  3. every body is resolved, in spawn order or concurrently;
//  4. character colliders follow their bodies;
//  5. projectiles age and expire;
//  6. requests made during the tick are applied and a frame is published.
func (w *World) Step(dt float64) Frame {
	start := time.Now()
	var events []bus.Event

	w.mu.Lock()
	events = w.flushLocked(events)

	active := make([]*Entity, 0, len(w.order))
	for _, id := range w.order {
		e := w.entities[id]
		if e.Kind == KindCharacter {
			e.Body.Velocity = e.Intent.Vector().Mul(w.cfg.Character.Speed)
		}
		active = append(active, e)
	}

	if w.cfg.Parallel && len(active) > 1 {
		w.resolveParallelLocked(active, dt)
	} else {
		w.resolveSequentialLocked(active, dt)
	}

	for _, e := range active {
		w.stats.resolves.Add(1)
		if e.Trace.Outcome.Aborted() {
			w.stats.boundAborts.Add(1)
			events = append(events, bus.NewEvent(EventBoundExceeded, eventSource, BoundExceededEvent{
				ID:      e.Body.ID,
				Kind:    e.Kind,
				Outcome: e.Trace.Outcome,
				Depth:   e.Trace.Depth,
				Tick:    w.tick,
			}, nil))
		}
		if e.Kind == KindProjectile {
			e.Age += dt
			if e.Age >= w.cfg.Projectile.Lifetime {
				w.destroys = append(w.destroys, destroyRequest{id: e.Body.ID, reason: ReasonExpired})
			}
		}
	}

	w.tick++
	w.clock += dt
	events = w.flushLocked(events)

	frame := w.frameLocked()
	if every := uint64(w.cfg.Debug.FrameEvery); every > 0 && w.tick%every == 0 {
		events = append(events, bus.NewEvent(EventFrame, eventSource, frame, nil))
	}
	w.mu.Unlock()

	w.record(time.Since(start))
	w.publish(events)
	return frame
}

func (w *World) resolveSequentialLocked(active []*Entity, dt float64) {
	for _, e := range active {
		e.Body, e.Trace = w.resolver.WithQuery(w.viewOf(w.grid, e)).Resolve(e.Body, dt)
		// Later bodies must see where this one ended up.
		w.syncColliderLocked(e)
	}
}

// resolveParallelLocked resolves every body against a snapshot of the
// colliders taken before the tick, then moves the character colliders.
// Two characters can close in on the same free spot within one tick.
func (w *World) resolveParallelLocked(active []*Entity, dt float64) {
	snap := w.grid.Snapshot()
	_ = concurrent.Concurrent(context.Background(), active, w.cfg.Workers, func(_ context.Context, _ int, e *Entity) error {
		e.Body, e.Trace = w.resolver.WithQuery(w.viewOf(snap, e)).Resolve(e.Body, dt)
		return nil
	})
	for _, e := range active {
		w.syncColliderLocked(e)
	}
}

func (w *World) viewOf(g *spatial.Grid, e *Entity) physics.SpatialQuery {
	switch e.Kind {
	case KindCharacter:
		return g.Excluding(e.Collider)
	case KindProjectile:
		return g.Excluding(e.OwnerCollider)
	default:
		return g
	}
}

func (w *World) syncColliderLocked(e *Entity) {
	if e.Collider == "" {
		return
	}
	if err := w.grid.Move(e.Collider, e.Body.Position); err != nil {
		w.logger.Error("failed to move character collider",
			log.String("body", string(e.Body.ID)),
			log.Error(err),
		)
	}
}

// flushLocked applies queued spawns, then queued destroys.
func (w *World) flushLocked(events []bus.Event) []bus.Event {
	spawns := w.spawns
	w.spawns = nil
	for _, e := range spawns {
		if e.Kind == KindProjectile {
			// Launch from wherever the owner stands now.
			if owner, ok := w.entities[e.Owner]; ok {
				e.Body.Position = owner.Body.Position
				e.OwnerCollider = owner.Collider
			}
		}
		if e.Kind == KindCharacter {
			id, err := w.grid.Insert(spatial.Circle{Center: e.Body.Position, Radius: e.Body.Radius})
			if err != nil {
				w.logger.Error("failed to register character collider",
					log.String("body", string(e.Body.ID)),
					log.Error(err),
				)
				continue
			}
			e.Collider = id
		}
		w.entities[e.Body.ID] = e
		w.order = append(w.order, e.Body.ID)
		w.stats.spawned.Add(1)
		events = append(events, bus.NewEvent(EventBodySpawned, eventSource, SpawnedEvent{
			ID:       e.Body.ID,
			Kind:     e.Kind,
			Owner:    e.Owner,
			Position: e.Body.Position,
			Tick:     w.tick,
		}, nil))
	}

	destroys := w.destroys
	w.destroys = nil
	for _, req := range destroys {
		e, ok := w.entities[req.id]
		if !ok {
			continue
		}
		if e.Collider != "" {
			w.grid.Remove(e.Collider)
		}
		delete(w.entities, req.id)
		w.stats.destroyed.Add(1)
		events = append(events, bus.NewEvent(EventBodyDestroyed, eventSource, DestroyedEvent{
			ID:     req.id,
			Kind:   e.Kind,
			Reason: req.reason,
			Tick:   w.tick,
		}, nil))
	}
	if len(destroys) > 0 {
		kept := w.order[:0]
		for _, id := range w.order {
			if _, ok := w.entities[id]; ok {
				kept = append(kept, id)
			}
		}
		w.order = kept
	}
	return events
}

func (w *World) frameLocked() Frame {
	f := Frame{Tick: w.tick, Time: w.clock, Bodies: make([]BodyFrame, 0, len(w.order))}
	for _, id := range w.order {
		f.Bodies = append(f.Bodies, bodyFrame(w.entities[id]))
	}
	return f
}

func (w *World) characterLocked(id physics.BodyID) (*Entity, error) {
	e, ok := w.entities[id]
	if !ok {
		for _, s := range w.spawns {
			if s.Body.ID == id {
				e, ok = s, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	if e.Kind != KindCharacter {
		return nil, fmt.Errorf("%w: %s", ErrNotCharacter, id)
	}
	return e, nil
}

func (w *World) pendingLocked(id physics.BodyID) bool {
	for _, s := range w.spawns {
		if s.Body.ID == id {
			return true
		}
	}
	return false
}

func (w *World) publish(events []bus.Event) {
	for _, ev := range events {
		if err := w.bus.Publish(ev); err != nil {
			w.stats.busErrors.Add(1)
			w.logger.Warn("event handler failed",
				log.String("event", ev.Type()),
				log.Error(err),
			)
		}
	}
}

func (w *World) record(d time.Duration) {
	w.stats.ticks.Add(1)
	w.stats.totalNanos.Add(int64(d))
	w.stats.lastUnix.Store(time.Now().UnixNano())
	for {
		cur := w.stats.maxNanos.Load()
		if int64(d) <= cur || w.stats.maxNanos.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Stats returns a snapshot of the world counters.
func (w *World) Stats() Stats {
	w.mu.Lock()
	alive := len(w.order)
	w.mu.Unlock()
	return Stats{
		Ticks:       w.stats.ticks.Load(),
		Resolves:    w.stats.resolves.Load(),
		BoundAborts: w.stats.boundAborts.Load(),
		Spawned:     w.stats.spawned.Load(),
		Destroyed:   w.stats.destroyed.Load(),
		Alive:       alive,
	}
}

// GetMetrics implements systems.System.
func (w *World) GetMetrics() systems.Metrics {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	ticks := w.stats.ticks.Load()
	total := time.Duration(w.stats.totalNanos.Load())
	m := systems.Metrics{
		State:              state,
		ExecutionCount:     ticks,
		TotalExecutionTime: total,
		MaxExecutionTime:   time.Duration(w.stats.maxNanos.Load()),
		ErrorCount:         w.stats.busErrors.Load(),
		EntitiesProcessed:  w.stats.resolves.Load(),
		BoundAborts:        w.stats.boundAborts.Load(),
	}
	if ticks > 0 {
		m.AverageExecutionTime = total / time.Duration(ticks)
	}
	if last := w.stats.lastUnix.Load(); last > 0 {
		m.LastExecutionTime = time.Unix(0, last)
	}
	return m
}
