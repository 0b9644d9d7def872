package api

import "time"

type (
	// Snapshot is a serialized picture of every live flow and action
	// instance at the end of a scheduling tick
	Snapshot struct {
		TakenAt time.Time             `json:"taken_at"`
		Flows   map[UID]*FlowRecord   `json:"flows"`
		Actions map[UID]*ActionRecord `json:"actions,omitempty"`
		Globals map[string]any        `json:"globals,omitempty"`
	}

	// FlowRecord captures the externally visible state of one flow instance
	FlowRecord struct {
		UID                UID            `json:"uid"`
		FlowID             FlowID         `json:"flow_id"`
		Status             FlowStatus     `json:"status"`
		LoopID             LoopID         `json:"loop_id,omitempty"`
		ParentUID          UID            `json:"parent_uid,omitempty"`
		ChildFlowUIDs      []UID          `json:"child_flow_uids,omitempty"`
		Context            map[string]any `json:"context,omitempty"`
		Priority           float64        `json:"priority"`
		Arguments          map[string]any `json:"arguments,omitempty"`
		Activate           bool           `json:"activate,omitempty"`
		NewInstanceStarted bool           `json:"new_instance_started,omitempty"`
		Error              string         `json:"error,omitempty"`
	}

	// ActionRecord captures the externally visible state of one action
	// instance
	ActionRecord struct {
		UID                 UID            `json:"uid"`
		Name                string         `json:"name"`
		FlowUID             UID            `json:"flow_uid"`
		Status              ActionStatus   `json:"status"`
		Context             map[string]any `json:"context,omitempty"`
		StartEventArguments map[string]any `json:"start_event_arguments,omitempty"`
	}
)
