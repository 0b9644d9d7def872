package api

import "errors"

type (
	// FlowStatus represents the current state of a flow instance
	FlowStatus string

	// ActionStatus represents the current state of an action instance
	ActionStatus string
)

const (
	FlowWaiting  FlowStatus = "waiting"
	FlowStarting FlowStatus = "starting"
	FlowStarted  FlowStatus = "started"
	FlowStopping FlowStatus = "stopping"
	FlowStopped  FlowStatus = "stopped"
	FlowFinished FlowStatus = "finished"
)

const (
	ActionInitialized ActionStatus = "initialized"
	ActionStarting    ActionStatus = "starting"
	ActionStarted     ActionStatus = "started"
	ActionStopping    ActionStatus = "stopping"
	ActionFinished    ActionStatus = "finished"
)

// ErrInvalidTransition is returned when an instance receives a status change
// incompatible with its current status
var ErrInvalidTransition = errors.New("invalid state transition")

var flowRank = map[FlowStatus]int{
	FlowWaiting:  0,
	FlowStarting: 1,
	FlowStarted:  2,
	FlowStopping: 3,
	FlowStopped:  4,
	FlowFinished: 4,
}

var actionRank = map[ActionStatus]int{
	ActionInitialized: 0,
	ActionStarting:    1,
	ActionStarted:     2,
	ActionStopping:    3,
	ActionFinished:    4,
}

// IsTerminal returns true once a flow instance can no longer execute
func (s FlowStatus) IsTerminal() bool {
	return s == FlowStopped || s == FlowFinished
}

// CanAdvanceTo reports whether a flow status change is monotonic. Waiting and
// started alternate freely as an instance suspends and resumes; otherwise
// ranks may only increase
func (s FlowStatus) CanAdvanceTo(next FlowStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == FlowStarted && next == FlowWaiting {
		return true
	}
	return flowRank[next] > flowRank[s]
}

// IsTerminal returns true once an action instance can no longer change
func (s ActionStatus) IsTerminal() bool {
	return s == ActionFinished
}

// CanAdvanceTo reports whether an action status change is monotonic
func (s ActionStatus) CanAdvanceTo(next ActionStatus) bool {
	return actionRank[next] > actionRank[s]
}
