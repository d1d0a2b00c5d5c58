package types

// SessionState tracks the lifecycle of one query session.
type SessionState int32

const (
	// StatePending is the zero state before the session starts accumulating.
	StatePending SessionState = iota
	// StateAccumulating accepts candidate batches via feed.
	StateAccumulating
	// StateFinalizing means feed is closed but scoring work is outstanding.
	StateFinalizing
	// StateReady means the final ranked list is available.
	StateReady
	// StateCancelled means a newer query superseded this session or the
	// caller aborted it.
	StateCancelled
	// StateFailed means scoring hit an internal or provider error.
	StateFailed
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAccumulating:
		return "accumulating"
	case StateFinalizing:
		return "finalizing"
	case StateReady:
		return "ready"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state accepts no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateReady || s == StateCancelled || s == StateFailed
}
