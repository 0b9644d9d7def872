package runtime

import (
	"fmt"
	"slices"

	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/value"
)

// Names of the lifecycle events the runtime itself raises and matches.
// Action acknowledgment events arrive from the external executor carrying an
// action_uid argument; flow events are raised internally and carry a flow
// reference
const (
	EventActionStarting = "ActionStarting"
	EventActionStarted  = "ActionStarted"
	EventActionStopping = "ActionStopping"
	EventActionFinished = "ActionFinished"

	EventFlowStarted  = "FlowStarted"
	EventFlowFinished = "FlowFinished"
	EventFlowStopped  = "FlowStopped"
)

// ArgActionUID is the argument naming the action an acknowledgment targets
const ArgActionUID = "action_uid"

// Event is an immutable notification exchanged between the scheduler and
// flow instances. Identity is fixed once created; arguments may be read by
// any number of matching instances
type Event struct {
	uid       api.UID
	Name      string
	Arguments map[string]value.Value
	Flow      *FlowInstance
}

// NewEvent creates an event with the given name and arguments
func NewEvent(name string, args map[string]value.Value) *Event {
	if args == nil {
		args = map[string]value.Value{}
	}
	return &Event{uid: api.NewUID(), Name: name, Arguments: args}
}

// NewFlowEvent creates a flow-scoped event carrying a flow reference
func NewFlowEvent(name string, flow *FlowInstance) *Event {
	ev := NewEvent(name, nil)
	ev.Flow = flow
	return ev
}

func (e *Event) RefKind() value.Kind { return value.KindEvent }

func (e *Event) RefUID() string { return string(e.uid) }

// Attr exposes the fixed reference surface of an event: name, arguments,
// and flow for flow-scoped events
func (e *Event) Attr(name string) (value.Value, error) {
	switch name {
	case "name":
		return value.String(e.Name), nil
	case "arguments":
		return argsMapping(e.Arguments), nil
	case "flow":
		if e.Flow == nil {
			return value.Null{}, nil
		}
		return value.NewReference(e.Flow), nil
	default:
		return nil, fmt.Errorf("%w: event has no attribute %q",
			value.ErrAttribute, name)
	}
}

func argsMapping(args map[string]value.Value) *value.Mapping {
	m := value.NewMapping()
	for _, name := range sortedNames(args) {
		m.Set(value.String(name), args[name])
	}
	return m
}

func sortedNames(args map[string]value.Value) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func exportArgs(args map[string]value.Value) map[string]any {
	out := make(map[string]any, len(args))
	for name, v := range args {
		out[name] = value.ToAny(v)
	}
	return out
}
