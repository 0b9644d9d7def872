package runtime

import (
	"errors"
	"fmt"

	"github.com/kode4food/colloquy/internal/util"
	"github.com/kode4food/colloquy/pkg/value"
)

type (
	// Globals is the process-wide variable tier. It is constructed once at
	// interpreter start, passed by handle into every evaluation, and torn
	// down with the runtime. The reserved $system variable lives here
	Globals struct {
		vars map[string]value.Value
	}

	// Scope is the per-flow-instance variable context: a local tier plus
	// the set of names this instance has bound to the global tier with a
	// global declaration
	Scope struct {
		globals *Globals
		locals  map[string]value.Value
		bound   util.Set[string]
	}
)

// ErrUndefinedVariable is returned when a variable is read before any
// writer has bound it
var ErrUndefinedVariable = errors.New("undefined variable")

// SystemVariable is the reserved name exposing host configuration and state
const SystemVariable = "system"

// NewGlobals creates an empty global variable tier
func NewGlobals() *Globals {
	return &Globals{vars: map[string]value.Value{}}
}

// Get reads a global by name
func (g *Globals) Get(name string) (value.Value, bool) {
	v, ok := g.vars[name]
	return v, ok
}

// Set writes a global by name
func (g *Globals) Set(name string, v value.Value) {
	g.vars[name] = v
}

// SetSystem installs the read-only $system value with the host-loaded
// configuration and runtime state
func (g *Globals) SetSystem(cfg, state value.Value) {
	system := value.NewMapping()
	system.Set(value.String("config"), cfg)
	system.Set(value.String("state"), state)
	g.vars[SystemVariable] = system
}

// Export returns a plain-Go copy of the global tier for snapshots
func (g *Globals) Export() map[string]any {
	out := make(map[string]any, len(g.vars))
	for name, v := range g.vars {
		out[name] = value.ToAny(v)
	}
	return out
}

func newScope(globals *Globals) *Scope {
	return &Scope{
		globals: globals,
		locals:  map[string]value.Value{},
		bound:   util.Set[string]{},
	}
}

// Lookup resolves a $name read. Names declared global resolve against the
// global tier; everything else resolves locally, shadowing any same-named
// global. $system is always visible
func (s *Scope) Lookup(name string) (value.Value, error) {
	if s.bound.Contains(name) || name == SystemVariable {
		if v, ok := s.globals.Get(name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: $%s", ErrUndefinedVariable, name)
	}
	if v, ok := s.locals[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: $%s", ErrUndefinedVariable, name)
}

// Write stores a value into whichever tier is bound for the name
func (s *Scope) Write(name string, v value.Value) {
	if s.bound.Contains(name) {
		s.globals.Set(name, v)
		return
	}
	s.locals[name] = v
}

// DeclareGlobal binds a name to the global tier for the remainder of this
// instance's lifetime. The global need not exist yet; reading it before a
// writer initializes it is still an undefined-variable failure
func (s *Scope) DeclareGlobal(name string) {
	s.bound.Add(name)
}

// Locals returns the instance's local bindings; the live map, not a copy
func (s *Scope) Locals() map[string]value.Value {
	return s.locals
}
