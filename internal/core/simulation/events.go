package simulation

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/systems/physics"
)

const (
	EventBodySpawned   = "body.spawned"
	EventBodyDestroyed = "body.destroyed"
	EventBoundExceeded = "motion.bound_exceeded"
	EventFrame         = "tick.frame"

	eventSource = "simulation"
)

// DestroyReason says why a body left the world.
type DestroyReason string

const (
	ReasonExpired DestroyReason = "expired"
	ReasonRemoved DestroyReason = "removed"
)

// SpawnedEvent is the payload of EventBodySpawned.
type SpawnedEvent struct {
	ID       physics.BodyID
	Kind     Kind
	Owner    physics.BodyID
	Position r2.Point
	Tick     uint64
}

// DestroyedEvent is the payload of EventBodyDestroyed.
type DestroyedEvent struct {
	ID     physics.BodyID
	Kind   Kind
	Reason DestroyReason
	Tick   uint64
}

// BoundExceededEvent is the payload of EventBoundExceeded.
type BoundExceededEvent struct {
	ID      physics.BodyID
	Kind    Kind
	Outcome physics.Outcome
	Depth   int
	Tick    uint64
}

// Vec is a JSON-friendly point.
type Vec [2]float64

func vec(p r2.Point) Vec { return Vec{p.X, p.Y} }

// finite reports whether p can be encoded as JSON.
func finite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Frame is the per-tick debug view of the world: every body, its velocity
// and the contacts its last resolve acted on.
type Frame struct {
	Tick   uint64      `json:"tick"`
	Time   float64     `json:"time"`
	Bodies []BodyFrame `json:"bodies"`
}

type BodyFrame struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	Position     Vec            `json:"position"`
	Velocity     Vec            `json:"velocity"`
	Radius       float64        `json:"radius"`
	Outcome      string         `json:"outcome"`
	Contacts     []ContactFrame `json:"contacts,omitempty"`
	CenterNormal *Vec           `json:"center_normal,omitempty"`
}

type ContactFrame struct {
	Point  Vec `json:"point"`
	Normal Vec `json:"normal"`
}

func bodyFrame(e *Entity) BodyFrame {
	f := BodyFrame{
		ID:       string(e.Body.ID),
		Kind:     e.Kind.String(),
		Position: vec(e.Body.Position),
		Velocity: vec(e.Body.Velocity),
		Radius:   e.Body.Radius,
		Outcome:  e.Trace.Outcome.String(),
	}
	for _, c := range e.Trace.Contacts {
		if !finite(c.Point) || !finite(c.Normal) {
			continue
		}
		f.Contacts = append(f.Contacts, ContactFrame{Point: vec(c.Point), Normal: vec(c.Normal)})
	}
	if e.Trace.CenterNormal != (r2.Point{}) && finite(e.Trace.CenterNormal) {
		cn := vec(e.Trace.CenterNormal)
		f.CenterNormal = &cn
	}
	return f
}
