// Package value implements the tagged variant type flowing through the
// runtime: the primitives, containers, compiled patterns, and opaque
// references that dialogue flows read, copy, and compare
package value

type (
	// Kind discriminates the closed set of value variants
	Kind string

	// Value is one of the closed set of variants a flow variable can hold
	Value interface {
		Kind() Kind
	}

	// Null is the absent value
	Null struct{}

	// Bool is a boolean value
	Bool bool

	// Int is a signed integer value
	Int int64

	// Float is a floating point value
	Float float64

	// String is a text value
	String string

	// List is an ordered, mutable sequence
	List struct {
		Items []Value
	}

	// Set is a mutable collection of distinct values. Insertion order is
	// preserved so iteration, rendering, and replay stay deterministic
	Set struct {
		Items []Value
	}

	// Mapping is an insertion-ordered, mutable key/value collection
	Mapping struct {
		Entries []MapEntry
	}

	// MapEntry is a single key/value pair in a Mapping
	MapEntry struct {
		Key Value
		Val Value
	}

	// Referent is the capability surface behind a Reference: a live event,
	// action instance, or flow instance owned by the runtime
	Referent interface {
		RefKind() Kind
		RefUID() string
		Attr(name string) (Value, error)
	}

	// Reference is an opaque handle to a Referent. Copying a Reference
	// copies the handle only; both copies observe the same live instance
	Reference struct {
		Target Referent
	}
)

const (
	KindNull      Kind = "null"
	KindBool      Kind = "bool"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindString    Kind = "str"
	KindList      Kind = "list"
	KindSet       Kind = "set"
	KindMapping   Kind = "dict"
	KindRegex     Kind = "regex"
	KindReference Kind = "reference"

	// Referent kinds reported by Reference targets
	KindEvent  Kind = "event"
	KindAction Kind = "action"
	KindFlow   Kind = "flow"
)

func (Null) Kind() Kind       { return KindNull }
func (Bool) Kind() Kind       { return KindBool }
func (Int) Kind() Kind        { return KindInt }
func (Float) Kind() Kind      { return KindFloat }
func (String) Kind() Kind     { return KindString }
func (*List) Kind() Kind      { return KindList }
func (*Set) Kind() Kind       { return KindSet }
func (*Mapping) Kind() Kind   { return KindMapping }
func (*Reference) Kind() Kind { return KindReference }

// NewList creates a list from the given items
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// NewSet creates a set from the given items, dropping duplicates
func NewSet(items ...Value) *Set {
	s := &Set{}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// NewMapping creates an empty mapping
func NewMapping() *Mapping {
	return &Mapping{}
}

// NewReference wraps a live referent in a handle value
func NewReference(target Referent) *Reference {
	return &Reference{Target: target}
}

// Append adds an item to the end of the list
func (l *List) Append(v Value) {
	l.Items = append(l.Items, v)
}

// Add inserts an item unless an equal one is already present
func (s *Set) Add(v Value) {
	for _, item := range s.Items {
		if Equal(item, v) {
			return
		}
	}
	s.Items = append(s.Items, v)
}

// Contains reports whether an equal item is present
func (s *Set) Contains(v Value) bool {
	for _, item := range s.Items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Get returns the value stored under an equal key
func (m *Mapping) Get(key Value) (Value, bool) {
	for _, e := range m.Entries {
		if Equal(e.Key, key) {
			return e.Val, true
		}
	}
	return nil, false
}

// Set stores a value under a key, replacing any equal key in place
func (m *Mapping) Set(key, val Value) {
	for i, e := range m.Entries {
		if Equal(e.Key, key) {
			m.Entries[i].Val = val
			return
		}
	}
	m.Entries = append(m.Entries, MapEntry{Key: key, Val: val})
}

// Keys returns the mapping keys in insertion order
func (m *Mapping) Keys() []Value {
	keys := make([]Value, len(m.Entries))
	for i, e := range m.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Values returns the mapping values in insertion order
func (m *Mapping) Values() []Value {
	vals := make([]Value, len(m.Entries))
	for i, e := range m.Entries {
		vals[i] = e.Val
	}
	return vals
}
