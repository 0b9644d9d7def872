package runtime

import (
	"fmt"

	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/value"
)

// ActionInstance tracks one unit of external work started by a flow
// instance. The concrete execution happens outside the runtime; status
// advances only through acknowledgment events from the executor, and only
// monotonically
type ActionInstance struct {
	UID                 api.UID
	Name                string
	FlowUID             api.UID
	Status              api.ActionStatus
	Context             map[string]value.Value
	StartEventArguments map[string]value.Value
}

func newActionInstance(
	name string, flowUID api.UID, args map[string]value.Value,
) *ActionInstance {
	return &ActionInstance{
		UID:                 api.NewUID(),
		Name:                name,
		FlowUID:             flowUID,
		Status:              api.ActionInitialized,
		Context:             map[string]value.Value{},
		StartEventArguments: args,
	}
}

// advance moves the action to the next status, merging any event parameters
// into the accumulated context. Backward or skipped-into-the-past
// transitions are rejected
func (a *ActionInstance) advance(
	next api.ActionStatus, params map[string]value.Value,
) error {
	if !a.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: action %s cannot move %s -> %s",
			api.ErrInvalidTransition, a.UID, a.Status, next)
	}
	a.Status = next
	for name, v := range params {
		if name == ArgActionUID {
			continue
		}
		a.Context[name] = v
	}
	return nil
}

func (a *ActionInstance) RefKind() value.Kind { return value.KindAction }

func (a *ActionInstance) RefUID() string { return string(a.UID) }

// Attr exposes the fixed reference surface of an action instance
func (a *ActionInstance) Attr(name string) (value.Value, error) {
	switch name {
	case "uid":
		return value.String(a.UID), nil
	case "name":
		return value.String(a.Name), nil
	case "flow_uid":
		return value.String(a.FlowUID), nil
	case "status":
		return value.String(a.Status), nil
	case "context":
		return argsMapping(a.Context), nil
	case "start_event_arguments":
		return argsMapping(a.StartEventArguments), nil
	default:
		return nil, fmt.Errorf("%w: action has no attribute %q",
			value.ErrAttribute, name)
	}
}

// Record captures the action's externally visible state for snapshots
func (a *ActionInstance) Record() *api.ActionRecord {
	return &api.ActionRecord{
		UID:                 a.UID,
		Name:                a.Name,
		FlowUID:             a.FlowUID,
		Status:              a.Status,
		Context:             exportArgs(a.Context),
		StartEventArguments: exportArgs(a.StartEventArguments),
	}
}
