package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/kode4food/colloquy/internal/eval"
	"github.com/kode4food/colloquy/internal/util"
	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/log"
	"github.com/kode4food/colloquy/pkg/value"
)

type (
	// OrphanPolicy decides what happens to child flow instances when their
	// parent stops
	OrphanPolicy string

	// Manager owns every flow and action instance: creation, matching,
	// stopping, activation restarts, and the parent/child relation
	Manager struct {
		globals   *Globals
		flows     map[api.FlowID]*Flow
		instances []*FlowInstance
		byUID     map[api.UID]*FlowInstance
		actions   map[api.UID]*ActionInstance
		retired   util.Set[api.UID]
		policy    OrphanPolicy
		logger    *slog.Logger
		evalEnv   eval.Env
		seq       int
	}
)

const (
	// OrphanStop recursively stops children with their parent
	OrphanStop OrphanPolicy = "stop"

	// OrphanDetach clears the parent link and lets children continue
	OrphanDetach OrphanPolicy = "detach"
)

const defaultPriority = 1.0

var (
	// ErrUnknownFlow is returned when starting an unregistered flow
	ErrUnknownFlow = errors.New("unknown flow")

	// ErrUnknownInstance is returned for operations on missing uids
	ErrUnknownInstance = errors.New("unknown instance")
)

func newManager(
	globals *Globals, policy OrphanPolicy, logger *slog.Logger,
) *Manager {
	return &Manager{
		globals: globals,
		flows:   map[api.FlowID]*Flow{},
		byUID:   map[api.UID]*FlowInstance{},
		actions: map[api.UID]*ActionInstance{},
		retired: util.Set[api.UID]{},
		policy:  policy,
		logger:  logger,
	}
}

// Register adds a flow definition to the manager
func (m *Manager) Register(flow *Flow) {
	if flow.Priority == 0 {
		flow.Priority = defaultPriority
	}
	m.flows[flow.ID] = flow
}

// Lookup returns a registered flow definition
func (m *Manager) Lookup(id api.FlowID) (*Flow, error) {
	flow, ok := m.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, id)
	}
	return flow, nil
}

// Instance returns the live flow instance for a uid
func (m *Manager) Instance(uid api.UID) (*FlowInstance, error) {
	inst, ok := m.byUID[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, uid)
	}
	return inst, nil
}

// Action returns the live action instance for a uid
func (m *Manager) Action(uid api.UID) (*ActionInstance, error) {
	action, ok := m.actions[uid]
	if !ok {
		return nil, fmt.Errorf("%w: action %s", ErrUnknownInstance, uid)
	}
	return action, nil
}

// Retired reports whether an action belonged to an instance that has since
// been pruned; late executor results for such actions are discarded
func (m *Manager) Retired(uid api.UID) bool {
	return m.retired.Contains(uid)
}

// createInstance builds a new instance of a flow in waiting status.
// Arguments are deep-copied into the instance's local scope: parameters are
// bound by value, never shared with the starting flow's variables. Declared
// parameters not supplied by the caller bind to Null
func (m *Manager) createInstance(
	flow *Flow, args map[string]value.Value, parent *FlowInstance,
	activate bool,
) *FlowInstance {
	bound := make(map[string]value.Value, len(args))
	for name, v := range args {
		bound[name] = value.Copy(v)
	}
	for _, name := range flow.Params {
		if _, ok := bound[name]; !ok {
			bound[name] = value.Null{}
		}
	}
	inst := &FlowInstance{
		UID:       api.NewUID(),
		Flow:      flow,
		Status:    api.FlowWaiting,
		Scope:     newScope(m.globals),
		Priority:  flow.Priority,
		Arguments: bound,
		Activate:  activate,
		seq:       m.seq,
	}
	m.seq++
	for name, v := range bound {
		inst.Scope.Write(name, value.Copy(v))
	}
	if parent != nil {
		inst.ParentUID = parent.UID
		parent.ChildFlowUIDs = append(parent.ChildFlowUIDs, inst.UID)
	}
	m.instances = append(m.instances, inst)
	m.byUID[inst.UID] = inst
	return inst
}

func (m *Manager) createAction(
	name string, owner *FlowInstance, args map[string]value.Value,
) *ActionInstance {
	action := newActionInstance(name, owner.UID, args)
	m.actions[action.UID] = action
	owner.actionUIDs = append(owner.actionUIDs, action.UID)
	return action
}

// matching returns the instances whose pending match is satisfied by the
// event, ordered by descending priority and then by creation order so
// delivery is deterministic
func (m *Manager) matching(ev *Event) []*FlowInstance {
	var matched []*FlowInstance
	for _, inst := range m.instances {
		pending := inst.pendingMatch()
		if pending == nil {
			continue
		}
		if m.satisfies(inst, pending, ev) {
			matched = append(matched, inst)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].seq < matched[j].seq
	})
	return matched
}

// satisfies checks event name equality plus argument predicate equality.
// Predicates evaluate in the instance's scope; reference-valued predicates
// compare by identity through value.Equal. A predicate that fails to
// evaluate is a non-match, not an instance failure
func (m *Manager) satisfies(
	inst *FlowInstance, pending *Match, ev *Event,
) bool {
	if pending.EventName != ev.Name {
		return false
	}
	for name, src := range pending.Arguments {
		want, err := eval.EvalString(src, inst.Scope, m.evalEnv)
		if err != nil {
			m.logger.Debug("Match predicate failed to evaluate",
				log.FlowUID(inst.UID), log.EventName(ev.Name),
				log.Error(err))
			return false
		}
		got, ok := ev.Arguments[name]
		if name == "flow" && ev.Flow != nil {
			got, ok = value.NewReference(ev.Flow), true
		}
		if !ok || !value.Equal(want, got) {
			return false
		}
	}
	return true
}

// stop transitions an instance through stopping to stopped, discarding its
// continuation and applying the orphan policy to its children
func (m *Manager) stop(inst *FlowInstance, cause error) error {
	if err := inst.setStatus(api.FlowStopping); err != nil {
		return err
	}
	inst.Err = cause
	_ = inst.setStatus(api.FlowStopped)
	m.logger.Debug("Flow instance stopped",
		log.FlowID(inst.Flow.ID), log.FlowUID(inst.UID),
		log.Error(cause))
	m.settleChildren(inst)
	return nil
}

// finish marks natural completion and applies the orphan policy, then
// handles activation restart. An instance already stopped from outside
// cannot finish, and never restarts
func (m *Manager) finish(inst *FlowInstance) *FlowInstance {
	if err := inst.setStatus(api.FlowFinished); err != nil {
		return nil
	}
	m.settleChildren(inst)
	if !inst.Activate {
		return nil
	}

	// a clean restart: fresh instance, same definition and starting
	// arguments, empty local context beyond the bound parameters
	restarted := m.createInstance(inst.Flow, inst.Arguments, nil, true)
	restarted.ParentUID = inst.ParentUID
	inst.NewInstanceStarted = true
	m.logger.Debug("Activated flow restarted",
		log.FlowID(inst.Flow.ID), log.FlowUID(restarted.UID))
	return restarted
}

func (m *Manager) settleChildren(parent *FlowInstance) {
	for _, uid := range parent.ChildFlowUIDs {
		child, ok := m.byUID[uid]
		if !ok || child.Status.IsTerminal() {
			continue
		}
		if m.policy == OrphanDetach {
			child.ParentUID = ""
			continue
		}
		_ = m.stop(child, nil)
	}
}

// FlowsInfo builds a fresh read-only snapshot of every live instance:
// uid to status, context, and priority at the instant of the call
func (m *Manager) FlowsInfo() value.Value {
	info := value.NewMapping()
	for _, inst := range m.instances {
		record := value.NewMapping()
		record.Set(value.String("status"), value.String(inst.Status))
		record.Set(value.String("context"),
			value.Copy(argsMapping(inst.Scope.Locals())))
		record.Set(value.String("priority"), value.Float(inst.Priority))
		info.Set(value.String(inst.UID), record)
	}
	return info
}

// pruneTerminal drops instances that finished or stopped in an earlier
// tick. A just-finished activated instance keeps its record, including
// new_instance_started, visible for exactly one tick
func (m *Manager) pruneTerminal() {
	kept := m.instances[:0]
	for _, inst := range m.instances {
		if inst.Status.IsTerminal() {
			delete(m.byUID, inst.UID)
			for _, uid := range inst.actionUIDs {
				delete(m.actions, uid)
				m.retired.Add(uid)
			}
			continue
		}
		kept = append(kept, inst)
	}
	m.instances = slices.Clip(kept)
}
