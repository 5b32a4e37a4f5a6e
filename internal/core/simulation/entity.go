package simulation

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/systems/physics"
)

// Kind tells characters and projectiles apart.
type Kind uint8

const (
	KindCharacter Kind = iota + 1
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindProjectile:
		return "projectile"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Intent is per-axis movement input, each axis -1, 0 or 1.
type Intent struct {
	X, Y int8
}

// IntentFromKeys maps held direction keys onto an Intent. Up wins over down
// and left wins over right when both are held.
func IntentFromKeys(up, down, left, right bool) Intent {
	var i Intent
	switch {
	case up:
		i.Y = 1
	case down:
		i.Y = -1
	}
	switch {
	case left:
		i.X = -1
	case right:
		i.X = 1
	}
	return i
}

// Vector is the unscaled direction. Diagonals are not normalised, so a
// diagonal walk is faster than a straight one.
func (i Intent) Vector() r2.Point {
	return r2.Point{X: float64(sign(i.X)), Y: float64(sign(i.Y))}
}

func (i Intent) IsZero() bool { return i.X == 0 && i.Y == 0 }

func sign(v int8) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Entity is a body owned by the world together with its bookkeeping.
// Values handed out by World are copies.
type Entity struct {
	Kind Kind
	Body physics.Body

	// Collider is the dynamic circle registered for a character.
	Collider physics.ColliderID
	Intent   Intent
	// Facing is the last non-zero movement direction, unit length.
	Facing r2.Point
	// LastFire is the world clock of the last shot.
	LastFire float64

	// Owner and OwnerCollider are set for projectiles; the projectile never
	// collides with its owner.
	Owner         physics.BodyID
	OwnerCollider physics.ColliderID
	// Age is the simulated time a projectile has been alive.
	Age float64

	// Trace is the diagnostic record of the entity's last resolve.
	Trace physics.Trace
}
