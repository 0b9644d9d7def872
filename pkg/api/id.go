package api

import "github.com/google/uuid"

type (
	// FlowID names a flow definition
	FlowID string

	// UID uniquely identifies a flow or action instance
	UID string

	// LoopID names an interaction loop boundary a flow belongs to
	LoopID string
)

// NewUID returns a fresh instance identifier
func NewUID() UID {
	return UID(uuid.NewString())
}
