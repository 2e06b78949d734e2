package core

// AgentState tracks the lifecycle of the single process-wide agent instance.
// Transitions are monotonic (Uninitialized -> Initializing -> Ready ->
// ShuttingDown -> Uninitialized) except that Failed returns to Uninitialized
// only through an explicit cleanup.
type AgentState int

const (
	// StateUninitialized is the terminal idle state before initialize and after cleanup.
	StateUninitialized AgentState = iota
	// StateInitializing is set while the ordered initialize sequence runs.
	StateInitializing
	// StateReady means the session and engine are bound and chat turns may be served.
	StateReady
	// StateShuttingDown is set while cleanup releases resources.
	StateShuttingDown
	// StateFailed marks a startup failure that has not yet been cleaned up.
	StateFailed
)

// String returns the lowercase state name used in logs and health payloads.
func (s AgentState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
