package simulation

import "errors"

var (
	ErrUnknownBody      = errors.New("simulation: unknown body")
	ErrNotCharacter     = errors.New("simulation: body is not a character")
	ErrCooldown         = errors.New("simulation: weapon cooling down")
	ErrInvalidDirection = errors.New("simulation: invalid fire direction")
	ErrSpawnBlocked     = errors.New("simulation: spawn point overlaps a collider")
)
