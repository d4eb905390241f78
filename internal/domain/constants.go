package domain

import "time"

// Job state constants
const (
	StatePending    = "pending"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateDead       = "dead"
)

// States lists every job state in lifecycle order.
var States = []string{
	StatePending,
	StateProcessing,
	StateCompleted,
	StateFailed,
	StateDead,
}

// Worker status constants
const (
	WorkerStatusRunning = "running"
	WorkerStatusStopped = "stopped"
)

// Queue config defaults applied on first store initialization
const (
	DefaultMaxRetries         = 3
	DefaultBackoffBase        = 2
	DefaultWorkerPollInterval = 1
)

// DefaultJobTimeout bounds the wall-clock runtime of a single job command.
const DefaultJobTimeout = 5 * time.Minute

// IsValidState reports whether s is one of the known job states.
func IsValidState(s string) bool {
	for _, state := range States {
		if s == state {
			return true
		}
	}
	return false
}
