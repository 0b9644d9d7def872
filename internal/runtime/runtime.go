// Package runtime implements the flow execution engine: variable scoping,
// event and action instance lifecycles, flow instance management, and the
// cooperative interaction-loop scheduler that drives them
package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kode4food/colloquy/internal/eval"
	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/log"
	"github.com/kode4food/colloquy/pkg/value"
)

type (
	// Options configures a Runtime
	Options struct {
		MaxCascadeDepth int
		OrphanPolicy    OrphanPolicy
		Logger          *slog.Logger
		Seed            int64
	}

	// Runtime drives discrete scheduling ticks over the flow instances it
	// manages. Execution is single-threaded and cooperative: instances
	// are logically concurrent but run one statement sequence at a time,
	// suspending only at match boundaries
	Runtime struct {
		man      *Manager
		globals  *Globals
		logger   *slog.Logger
		rng      *rand.Rand
		maxDepth int
	}

	// OutboundKind discriminates tick outputs
	OutboundKind string

	// Outbound is one output of a scheduling tick: an emitted event or an
	// action start/stop request for the external executor
	Outbound struct {
		Kind   OutboundKind
		Event  *Event
		Action *ActionInstance
	}

	tick struct {
		queue []pendingEvent
		out   []Outbound
	}

	pendingEvent struct {
		ev    *Event
		depth int
	}

	runtimeEnv struct {
		rt *Runtime
	}
)

const (
	OutboundEvent       OutboundKind = "event"
	OutboundStartAction OutboundKind = "start_action"
	OutboundStopAction  OutboundKind = "stop_action"
)

// DefaultMaxCascadeDepth bounds same-tick event cascades
const DefaultMaxCascadeDepth = 50

var (
	// ErrRunawayExecution is returned when same-tick event delivery
	// exceeds the configured cascade depth
	ErrRunawayExecution = errors.New("runaway execution")

	// errSelfStopped halts an element run after an instance stops itself;
	// it never escapes the runtime
	errSelfStopped = errors.New("instance stopped itself")
)

// New creates a runtime with its own global variable tier
func New(opts *Options) *Runtime {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxDepth := opts.MaxCascadeDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCascadeDepth
	}
	policy := opts.OrphanPolicy
	if policy == "" {
		policy = OrphanStop
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	globals := NewGlobals()
	rt := &Runtime{
		globals:  globals,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
		maxDepth: maxDepth,
	}
	rt.man = newManager(globals, policy, logger)
	rt.man.evalEnv = runtimeEnv{rt}
	return rt
}

// Globals exposes the process-wide variable tier for host population
func (r *Runtime) Globals() *Globals {
	return r.globals
}

// Manager exposes instance bookkeeping for inspection
func (r *Runtime) Manager() *Manager {
	return r.man
}

// Register adds a flow definition
func (r *Runtime) Register(flows ...*Flow) {
	for _, flow := range flows {
		r.man.Register(flow)
	}
}

// StartFlow creates a top-level instance of a flow and runs it to its first
// blocking point within one tick, returning the tick's outputs and the new
// instance
func (r *Runtime) StartFlow(
	id api.FlowID, args map[string]value.Value,
) ([]Outbound, *FlowInstance, error) {
	return r.startTopLevel(id, args, false)
}

// ActivateFlow starts a flow with activation: when an instance finishes, an
// equivalent instance restarts immediately with the same arguments
func (r *Runtime) ActivateFlow(
	id api.FlowID, args map[string]value.Value,
) ([]Outbound, *FlowInstance, error) {
	return r.startTopLevel(id, args, true)
}

func (r *Runtime) startTopLevel(
	id api.FlowID, args map[string]value.Value, activate bool,
) ([]Outbound, *FlowInstance, error) {
	flow, err := r.man.Lookup(id)
	if err != nil {
		return nil, nil, err
	}
	r.man.pruneTerminal()
	inst := r.man.createInstance(flow, args, nil, activate)
	t := &tick{}
	r.startInstance(t, inst, 0)
	if err := r.drain(t); err != nil {
		return nil, nil, err
	}
	return t.out, inst, nil
}

// SubmitEvent drives one scheduling tick: the event is delivered to every
// matching suspended instance in priority order, matched instances run to
// their next blocking point, and events they emit are delivered recursively
// within the same tick. The returned slice holds the tick's emitted events
// and action requests in occurrence order
func (r *Runtime) SubmitEvent(ev *Event) ([]Outbound, error) {
	r.man.pruneTerminal()
	t := &tick{queue: []pendingEvent{{ev: ev, depth: 0}}}
	if err := r.drain(t); err != nil {
		return nil, err
	}
	return t.out, nil
}

// drain processes queued deliveries until the tick settles. Each event
// emitted while handling another is one level deeper; exceeding the ceiling
// aborts the whole tick
func (r *Runtime) drain(t *tick) error {
	for len(t.queue) > 0 {
		next := t.queue[0]
		t.queue = t.queue[1:]
		if next.depth > r.maxDepth {
			return fmt.Errorf("%w: same-tick cascade exceeded depth %d",
				ErrRunawayExecution, r.maxDepth)
		}
		if err := r.deliver(t, next.ev, next.depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) deliver(t *tick, ev *Event, depth int) error {
	if err := r.handleActionEvent(ev); err != nil {
		return err
	}
	for _, inst := range r.man.matching(ev) {
		// an earlier match in this delivery may have stopped us
		pending := inst.pendingMatch()
		if pending == nil || !r.man.satisfies(inst, pending, ev) {
			continue
		}
		r.resume(t, inst, pending, ev, depth)
	}
	return nil
}

// handleActionEvent advances action instances on executor acknowledgments.
// Malformed acknowledgments surface to the caller of SubmitEvent
func (r *Runtime) handleActionEvent(ev *Event) error {
	status, ok := actionEventStatus(ev.Name)
	if !ok {
		return nil
	}
	uid, ok := ev.Arguments[ArgActionUID].(value.String)
	if !ok {
		return fmt.Errorf("%w: %s event without %s",
			ErrUnknownInstance, ev.Name, ArgActionUID)
	}
	action, err := r.man.Action(api.UID(uid))
	if err != nil {
		// results for actions of an already-stopped flow arrive as a
		// normal executor race and are dropped
		if r.man.Retired(api.UID(uid)) {
			r.logger.Debug("Discarded result for retired action",
				log.ActionUID(api.UID(uid)), log.EventName(ev.Name))
			return nil
		}
		return err
	}
	if err := action.advance(status, ev.Arguments); err != nil {
		return err
	}
	r.logger.Debug("Action advanced",
		log.ActionUID(action.UID), log.Status(action.Status))
	return nil
}

// resume wakes a suspended instance for a satisfying event, binds the event
// reference, and runs the instance to its next blocking point
func (r *Runtime) resume(
	t *tick, inst *FlowInstance, pending *Match, ev *Event, depth int,
) {
	if pending.As != "" {
		inst.Scope.Write(pending.As, value.NewReference(ev))
	}
	_ = inst.setStatus(api.FlowStarting)
	inst.pc++
	r.run(t, inst, depth)
}

// startInstance runs a freshly created instance unless its first element is
// already a blocking match, in which case it stays waiting
func (r *Runtime) startInstance(t *tick, inst *FlowInstance, depth int) {
	if inst.pendingMatch() != nil {
		return
	}
	_ = inst.setStatus(api.FlowStarting)
	r.queueEvent(t, NewFlowEvent(EventFlowStarted, inst), depth, false)
	r.run(t, inst, depth)
}

// run executes elements until the next match suspension, completion, or a
// contained failure. Statement failures stop only the failing instance;
// the tick continues
func (r *Runtime) run(t *tick, inst *FlowInstance, depth int) {
	_ = inst.setStatus(api.FlowStarted)

	for inst.pc < len(inst.Flow.Elements) {
		if inst.Status.IsTerminal() {
			return
		}
		el := inst.Flow.Elements[inst.pc]
		if _, ok := el.(*Match); ok {
			_ = inst.setStatus(api.FlowWaiting)
			return
		}
		if _, ok := el.(*Done); ok {
			inst.pc = len(inst.Flow.Elements)
			continue
		}
		if err := r.exec(t, inst, el, depth); err != nil {
			if errors.Is(err, errSelfStopped) {
				return
			}
			r.logger.Warn("Flow instance failed",
				log.FlowID(inst.Flow.ID), log.FlowUID(inst.UID),
				log.Error(err))
			_ = r.man.stop(inst, err)
			r.queueEvent(t,
				NewFlowEvent(EventFlowStopped, inst), depth, false)
			return
		}
		inst.pc++
	}

	if inst.Status.IsTerminal() {
		return
	}
	restarted := r.man.finish(inst)
	r.queueEvent(t, NewFlowEvent(EventFlowFinished, inst), depth, false)
	if restarted != nil {
		r.startInstance(t, restarted, depth)
	}
}

func (r *Runtime) exec(
	t *tick, inst *FlowInstance, el Element, depth int,
) error {
	switch el := el.(type) {
	case *StartFlow:
		return r.execStartFlow(t, inst, el, depth)
	case *StartAction:
		return r.execStartAction(t, inst, el)
	case *StopAction:
		return r.execStopAction(t, inst, el)
	case *Send:
		args, err := r.evalArgs(inst, el.Arguments)
		if err != nil {
			return err
		}
		r.queueEvent(t, NewEvent(el.EventName, args), depth, true)
		return nil
	case *Assign:
		return r.execAssign(inst, el)
	case *Global:
		inst.Scope.DeclareGlobal(el.Name)
		return nil
	case *StopFlow:
		return r.execStopFlow(t, inst, el, depth)
	default:
		return fmt.Errorf("unsupported element in flow %s", inst.Flow.ID)
	}
}

func (r *Runtime) execStartFlow(
	t *tick, inst *FlowInstance, el *StartFlow, depth int,
) error {
	flow, err := r.man.Lookup(el.FlowID)
	if err != nil {
		return err
	}
	args, err := r.evalArgs(inst, el.Arguments)
	if err != nil {
		return err
	}
	child := r.man.createInstance(flow, args, inst, el.Activate)
	if el.As != "" {
		inst.Scope.Write(el.As, value.NewReference(child))
	}
	r.startInstance(t, child, depth)
	return nil
}

func (r *Runtime) execStartAction(
	t *tick, inst *FlowInstance, el *StartAction,
) error {
	args, err := r.evalArgs(inst, el.Arguments)
	if err != nil {
		return err
	}
	action := r.man.createAction(el.Name, inst, args)
	if el.As != "" {
		inst.Scope.Write(el.As, value.NewReference(action))
	}
	t.out = append(t.out, Outbound{
		Kind:   OutboundStartAction,
		Action: action,
	})
	r.logger.Debug("Action start requested",
		log.ActionUID(action.UID), log.FlowUID(inst.UID))
	return nil
}

func (r *Runtime) execStopAction(
	t *tick, inst *FlowInstance, el *StopAction,
) error {
	action, err := r.resolveAction(inst, el.Ref)
	if err != nil {
		return err
	}
	t.out = append(t.out, Outbound{
		Kind:   OutboundStopAction,
		Action: action,
	})
	return nil
}

func (r *Runtime) execStopFlow(
	t *tick, inst *FlowInstance, el *StopFlow, depth int,
) error {
	if el.Ref == "" {
		if err := r.man.stop(inst, nil); err != nil {
			return err
		}
		r.queueEvent(t, NewFlowEvent(EventFlowStopped, inst), depth, false)
		return errSelfStopped
	}
	v, err := eval.EvalString(el.Ref, inst.Scope, runtimeEnv{r})
	if err != nil {
		return err
	}
	ref, ok := v.(*value.Reference)
	if !ok {
		return fmt.Errorf("%w: stop requires a flow reference, got %q",
			eval.ErrTypeMismatch, v.Kind())
	}
	target, ok := ref.Target.(*FlowInstance)
	if !ok {
		return fmt.Errorf("%w: stop requires a flow reference, got %q",
			eval.ErrTypeMismatch, ref.Target.RefKind())
	}
	if err := r.man.stop(target, nil); err != nil {
		return err
	}
	r.queueEvent(t, NewFlowEvent(EventFlowStopped, target), depth, false)
	if target == inst {
		return errSelfStopped
	}
	return nil
}

// execAssign stores through a variable, attribute, or subscript target.
// Plain variable assignment copies the evaluated value: containers are
// deep-copied, references keep their handle
func (r *Runtime) execAssign(inst *FlowInstance, el *Assign) error {
	target, err := eval.Parse(el.Target)
	if err != nil {
		return err
	}
	v, err := eval.EvalString(el.Expr, inst.Scope, runtimeEnv{r})
	if err != nil {
		return err
	}
	switch target := target.(type) {
	case *eval.Var:
		inst.Scope.Write(target.Name, value.Copy(v))
		return nil
	case *eval.Attr:
		x, err := eval.Eval(target.X, inst.Scope, runtimeEnv{r})
		if err != nil {
			return err
		}
		return value.SetAttr(x, target.Name, v)
	case *eval.Index:
		x, err := eval.Eval(target.X, inst.Scope, runtimeEnv{r})
		if err != nil {
			return err
		}
		key, err := eval.Eval(target.Key, inst.Scope, runtimeEnv{r})
		if err != nil {
			return err
		}
		return value.SetIndex(x, key, v)
	default:
		return fmt.Errorf("%w: cannot assign to %q",
			eval.ErrSyntax, el.Target)
	}
}

func (r *Runtime) resolveAction(
	inst *FlowInstance, src string,
) (*ActionInstance, error) {
	v, err := eval.EvalString(src, inst.Scope, runtimeEnv{r})
	if err != nil {
		return nil, err
	}
	ref, ok := v.(*value.Reference)
	if !ok {
		return nil, fmt.Errorf("%w: expected an action reference, got %q",
			eval.ErrTypeMismatch, v.Kind())
	}
	action, ok := ref.Target.(*ActionInstance)
	if !ok {
		return nil, fmt.Errorf("%w: expected an action reference, got %q",
			eval.ErrTypeMismatch, ref.Target.RefKind())
	}
	return action, nil
}

func (r *Runtime) evalArgs(
	inst *FlowInstance, exprs map[string]string,
) (map[string]value.Value, error) {
	args := make(map[string]value.Value, len(exprs))
	for name, src := range exprs {
		v, err := eval.EvalString(src, inst.Scope, runtimeEnv{r})
		if err != nil {
			return nil, err
		}
		args[name] = v
	}
	return args, nil
}

// queueEvent schedules an event for same-tick delivery one cascade level
// deeper. Send-emitted events are also collected as tick output; internal
// flow lifecycle events are delivery-only
func (r *Runtime) queueEvent(
	t *tick, ev *Event, depth int, outbound bool,
) {
	if outbound {
		t.out = append(t.out, Outbound{Kind: OutboundEvent, Event: ev})
	}
	t.queue = append(t.queue, pendingEvent{ev: ev, depth: depth + 1})
}

// Snapshot captures every live instance and the global tier
func (r *Runtime) Snapshot() *api.Snapshot {
	snap := &api.Snapshot{
		TakenAt: time.Now().UTC(),
		Flows:   map[api.UID]*api.FlowRecord{},
		Actions: map[api.UID]*api.ActionRecord{},
		Globals: r.globals.Export(),
	}
	for _, inst := range r.man.instances {
		snap.Flows[inst.UID] = inst.Record()
	}
	for uid, action := range r.man.actions {
		snap.Actions[uid] = action.Record()
	}
	return snap
}

func actionEventStatus(name string) (api.ActionStatus, bool) {
	switch name {
	case EventActionStarting:
		return api.ActionStarting, true
	case EventActionStarted:
		return api.ActionStarted, true
	case EventActionStopping:
		return api.ActionStopping, true
	case EventActionFinished:
		return api.ActionFinished, true
	default:
		return "", false
	}
}

func (e runtimeEnv) Rand() float64 {
	return e.rt.rng.Float64()
}

func (e runtimeEnv) RandInt(n int64) int64 {
	return e.rt.rng.Int63n(n)
}

func (e runtimeEnv) NewUID() string {
	return string(api.NewUID())
}

func (e runtimeEnv) FlowsInfo() value.Value {
	return e.rt.man.FlowsInfo()
}
