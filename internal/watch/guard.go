package watch

import "sync"

// State is the processing state of one watched path.
type State int

const (
	// StateIdle means no check is running.
	StateIdle State = iota
	// StateProcessing means a check is in flight.
	StateProcessing
	// StateProcessingWithPending means a check is in flight and another is
	// due as soon as it finishes.
	StateProcessingWithPending
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateProcessingWithPending:
		return "processing_pending"
	default:
		return "unknown"
	}
}

// cycleGuard serializes check cycles for one path. A trigger that arrives
// while a cycle is in flight is folded into a single pending follow-up.
type cycleGuard struct {
	mu    sync.Mutex
	state State
}

// Begin records a trigger. It returns true when the caller should start a
// cycle (the guard was idle) and false when the trigger was queued behind
// the running one.
func (g *cycleGuard) Begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case StateIdle:
		g.state = StateProcessing
		return true
	default:
		g.state = StateProcessingWithPending
		return false
	}
}

// Finish ends a cycle. It returns true when a trigger arrived during the
// cycle, in which case the caller must run one more cycle.
func (g *cycleGuard) Finish() (again bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case StateProcessingWithPending:
		g.state = StateProcessing
		return true
	default:
		g.state = StateIdle
		return false
	}
}

// Reset drops any in-flight or pending cycle and returns the guard to idle.
// It is only safe once no worker can run a cycle.
func (g *cycleGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateIdle
}

// State returns the current state.
func (g *cycleGuard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
