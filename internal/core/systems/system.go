package systems

import (
	"context"
	"time"
)

// System is a fixed-step game logic processor driven by a simulation loop.
type System interface {
	Name() string

	// Lifecycle

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// Execution

	// FixedUpdate advances the system by one fixed tick.
	FixedUpdate(fixedDeltaTime float64) error

	// Performance monitoring

	GetMetrics() Metrics
}

// StateIdentity represents the current state of a system
type StateIdentity uint8

const (
	StateUninitialized StateIdentity = iota
	StateRunning
	StateShutdown
)

func (s StateIdentity) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	State                StateIdentity
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	LastExecutionTime    time.Time
	ErrorCount           uint64
	EntitiesProcessed    uint64
	// BoundAborts counts resolves cut short by an iteration or depth bound.
	BoundAborts uint64
}
