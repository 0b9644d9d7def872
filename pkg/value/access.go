package value

import (
	"errors"
	"fmt"
)

var (
	// ErrAttribute is returned when a value lacks the requested attribute
	ErrAttribute = errors.New("attribute error")

	// ErrKey is returned when a mapping lacks the requested key
	ErrKey = errors.New("key error")

	// ErrIndex is returned when a list index is out of range or not an int
	ErrIndex = errors.New("index error")
)

// Attr resolves dotted attribute access. Mappings expose string keys as
// attributes; references delegate to their live instance. Missing attributes
// are an error, never a silent Null
func Attr(v Value, name string) (Value, error) {
	switch v := v.(type) {
	case *Mapping:
		if val, ok := v.Get(String(name)); ok {
			return val, nil
		}
		return nil, fmt.Errorf("%w: %q has no attribute %q",
			ErrAttribute, v.Kind(), name)
	case *Reference:
		return v.Target.Attr(name)
	default:
		return nil, fmt.Errorf("%w: %q has no attribute %q",
			ErrAttribute, v.Kind(), name)
	}
}

// Index resolves subscript access on lists, mappings, and strings
func Index(v, key Value) (Value, error) {
	switch v := v.(type) {
	case *List:
		i, err := listIndex(key, len(v.Items))
		if err != nil {
			return nil, err
		}
		return v.Items[i], nil
	case String:
		i, err := listIndex(key, len(v))
		if err != nil {
			return nil, err
		}
		return String(v[i : i+1]), nil
	case *Mapping:
		if val, ok := v.Get(key); ok {
			return val, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrKey, Str(key))
	case *Reference:
		if s, ok := key.(String); ok {
			return v.Target.Attr(string(s))
		}
		return nil, fmt.Errorf("%w: %s", ErrKey, Str(key))
	default:
		return nil, fmt.Errorf("%w: %q value is not subscriptable",
			ErrIndex, v.Kind())
	}
}

// SetIndex assigns through a subscript on a list or mapping
func SetIndex(v, key, val Value) error {
	switch v := v.(type) {
	case *List:
		i, err := listIndex(key, len(v.Items))
		if err != nil {
			return err
		}
		v.Items[i] = val
		return nil
	case *Mapping:
		v.Set(key, val)
		return nil
	default:
		return fmt.Errorf("%w: %q value does not support item assignment",
			ErrIndex, v.Kind())
	}
}

// SetAttr assigns through dotted attribute access on a mapping
func SetAttr(v Value, name string, val Value) error {
	if m, ok := v.(*Mapping); ok {
		m.Set(String(name), val)
		return nil
	}
	return fmt.Errorf("%w: %q does not support attribute assignment",
		ErrAttribute, v.Kind())
}

func listIndex(key Value, length int) (int, error) {
	i, ok := key.(Int)
	if !ok {
		return 0, fmt.Errorf("%w: indices must be integers, not %q",
			ErrIndex, key.Kind())
	}
	idx := int(i)
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("%w: %d out of range", ErrIndex, i)
	}
	return idx, nil
}
