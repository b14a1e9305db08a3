// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

// State is the lifecycle position of a Session.
type State int

const (
	// StateIdle is a constructed session that has not been started.
	StateIdle State = iota
	// StateSearching has the initial search request in flight.
	StateSearching
	// StatePolling waits for or awaits the next increment.
	StatePolling
	// StateMerging applies a just-received response.
	StateMerging
	// StateStalled means consecutive requests keep failing; the session is
	// still retrying.
	StateStalled
	// StateCompleted delivered a snapshot with running=false.
	StateCompleted
	// StateCancelled was stopped by the caller.
	StateCancelled
	// StateFailed hit a protocol error or an opt-in retry cap.
	StateFailed
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateSearching: "searching",
	StatePolling:   "polling",
	StateMerging:   "merging",
	StateStalled:   "stalled",
	StateCompleted: "completed",
	StateCancelled: "cancelled",
	StateFailed:    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further work happens in this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}
