package spatial

import "errors"

var (
	ErrUnknownCollider = errors.New("unknown collider")
	ErrNotMovable      = errors.New("collider shape cannot be moved")
	ErrInvalidShape    = errors.New("invalid collider shape")
)
