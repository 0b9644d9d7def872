package runtime

import (
	"fmt"

	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/value"
)

type (
	// Flow is a named dialogue state-machine definition: an element
	// sequence produced by the authoring front-end. Argument expressions
	// inside elements are evaluated in the owning instance's scope every
	// time the element executes
	Flow struct {
		ID       api.FlowID
		LoopID   api.LoopID
		Priority float64
		Params   []string
		Elements []Element
	}

	// Element is a single flow statement
	Element interface {
		element()
	}

	// Match suspends the instance until an event with the given name
	// arrives whose arguments equal every predicate expression. An
	// optional As name binds the matched event reference
	Match struct {
		EventName string
		Arguments map[string]string
		As        string
	}

	// StartFlow creates a child flow instance with arguments bound by
	// value. An optional As name binds the child flow reference
	StartFlow struct {
		FlowID    api.FlowID
		Arguments map[string]string
		As        string
		Activate  bool
	}

	// StartAction creates an action instance and issues a start request to
	// the external executor. An optional As name binds the action
	// reference
	StartAction struct {
		Name      string
		Arguments map[string]string
		As        string
	}

	// StopAction issues a stop request for the action the Ref expression
	// resolves to
	StopAction struct {
		Ref string
	}

	// Send emits an event; it is delivered to matching instances within
	// the same tick and collected as tick output
	Send struct {
		EventName string
		Arguments map[string]string
	}

	// Assign evaluates an expression and stores it through the target,
	// which may be a plain variable, an attribute, or a subscript
	Assign struct {
		Target string
		Expr   string
	}

	// Global binds a variable name to the global tier for the remainder of
	// the instance's lifetime
	Global struct {
		Name string
	}

	// StopFlow stops the flow instance the Ref expression resolves to, or
	// the executing instance when Ref is empty
	StopFlow struct {
		Ref string
	}

	// Done completes the executing instance successfully, skipping any
	// remaining elements
	Done struct{}
)

func (*Match) element()       {}
func (*StartFlow) element()   {}
func (*StartAction) element() {}
func (*StopAction) element()  {}
func (*Send) element()        {}
func (*Assign) element()      {}
func (*Global) element()      {}
func (*StopFlow) element()    {}
func (*Done) element()        {}

// FlowInstance is one running execution of a flow definition. The
// continuation point is the element index, not a captured stack, so a
// suspended instance can be inspected and resumed deterministically
type FlowInstance struct {
	UID                api.UID
	Flow               *Flow
	Status             api.FlowStatus
	ParentUID          api.UID
	ChildFlowUIDs      []api.UID
	Scope              *Scope
	Priority           float64
	Arguments          map[string]value.Value
	Activate           bool
	NewInstanceStarted bool
	Err                error

	pc         int
	seq        int
	actionUIDs []api.UID
}

func (f *FlowInstance) setStatus(next api.FlowStatus) error {
	if !f.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: flow %s cannot move %s -> %s",
			api.ErrInvalidTransition, f.UID, f.Status, next)
	}
	f.Status = next
	return nil
}

// pendingMatch returns the match element the instance is suspended at
func (f *FlowInstance) pendingMatch() *Match {
	if f.Status != api.FlowWaiting || f.pc >= len(f.Flow.Elements) {
		return nil
	}
	m, ok := f.Flow.Elements[f.pc].(*Match)
	if !ok {
		return nil
	}
	return m
}

func (f *FlowInstance) RefKind() value.Kind { return value.KindFlow }

func (f *FlowInstance) RefUID() string { return string(f.UID) }

// Attr exposes the fixed reference surface of a flow instance
func (f *FlowInstance) Attr(name string) (value.Value, error) {
	switch name {
	case "uid":
		return value.String(f.UID), nil
	case "flow_id":
		return value.String(f.Flow.ID), nil
	case "status":
		return value.String(f.Status), nil
	case "loop_id":
		if f.Flow.LoopID == "" {
			return value.Null{}, nil
		}
		return value.String(f.Flow.LoopID), nil
	case "parent_uid":
		if f.ParentUID == "" {
			return value.Null{}, nil
		}
		return value.String(f.ParentUID), nil
	case "child_flow_uids":
		uids := make([]value.Value, len(f.ChildFlowUIDs))
		for i, uid := range f.ChildFlowUIDs {
			uids[i] = value.String(uid)
		}
		return &value.List{Items: uids}, nil
	case "context":
		return argsMapping(f.Scope.Locals()), nil
	case "priority":
		return value.Float(f.Priority), nil
	case "arguments":
		return argsMapping(f.Arguments), nil
	case "activate":
		return value.Bool(f.Activate), nil
	case "new_instance_started":
		return value.Bool(f.NewInstanceStarted), nil
	default:
		return nil, fmt.Errorf("%w: flow has no attribute %q",
			value.ErrAttribute, name)
	}
}

// Record captures the instance's externally visible state for snapshots
func (f *FlowInstance) Record() *api.FlowRecord {
	rec := &api.FlowRecord{
		UID:                f.UID,
		FlowID:             f.Flow.ID,
		Status:             f.Status,
		LoopID:             f.Flow.LoopID,
		ParentUID:          f.ParentUID,
		ChildFlowUIDs:      append([]api.UID(nil), f.ChildFlowUIDs...),
		Context:            exportArgs(f.Scope.Locals()),
		Priority:           f.Priority,
		Arguments:          exportArgs(f.Arguments),
		Activate:           f.Activate,
		NewInstanceStarted: f.NewInstanceStarted,
	}
	if f.Err != nil {
		rec.Error = f.Err.Error()
	}
	return rec
}
