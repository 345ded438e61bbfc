package plugin

import "fmt"

// State is the lifecycle state of a plugin instance.
//
// Transitions are monotonic:
//
//	Uninitialized -> Initializing -> Ready | Failed -> Destroyed
//
// Destroy may also move an Uninitialized instance straight to Destroyed.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	case StateDestroyed:
		return "DESTROYED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateDestroyed
}

// canTransition reports whether moving from s to next is allowed.
func (s State) canTransition(next State) bool {
	switch s {
	case StateUninitialized:
		return next == StateInitializing || next == StateDestroyed
	case StateInitializing:
		return next == StateReady || next == StateFailed
	case StateReady, StateFailed:
		return next == StateDestroyed
	default:
		return false
	}
}
