package physics

import "errors"

var (
	ErrInvalidRadius   = errors.New("body radius must be positive")
	ErrUnknownResponse = errors.New("unknown response policy")
)
