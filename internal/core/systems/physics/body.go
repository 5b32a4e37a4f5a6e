package physics

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

type (
	// BodyID identifies a moving body for its owner and for diagnostics.
	BodyID string
	// ColliderID is an opaque collider reference. The empty id means absent.
	ColliderID string
)

// Body is a moving circle. Its owner constructs it, hands a copy to the
// resolver once per tick and stores the returned copy.
type Body struct {
	ID       BodyID
	Position r2.Point
	Radius   float64
	Velocity r2.Point
	Response Response
}

// NewBody builds a validated body with a fresh id.
func NewBody(position r2.Point, radius float64, velocity r2.Point, response Response) (Body, error) {
	b := Body{
		ID:       BodyID(uuid.NewString()),
		Position: position,
		Radius:   radius,
		Velocity: velocity,
		Response: response,
	}
	if err := b.Validate(); err != nil {
		return Body{}, err
	}
	return b, nil
}

// Validate checks the radius and response policy.
func (b Body) Validate() error {
	if !(b.Radius > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, b.Radius)
	}
	if !b.Response.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownResponse, b.Response)
	}
	return nil
}

// Speed returns |velocity|.
func (b Body) Speed() float64 { return b.Velocity.Norm() }
