package value

// Copy returns an independent deep copy for primitives and containers. For
// Reference and Regex values the handle itself is returned: both variables
// keep observing the same underlying instance
func Copy(v Value) Value {
	switch v := v.(type) {
	case *List:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = Copy(item)
		}
		return &List{Items: items}
	case *Set:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = Copy(item)
		}
		return &Set{Items: items}
	case *Mapping:
		entries := make([]MapEntry, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = MapEntry{Key: Copy(e.Key), Val: Copy(e.Val)}
		}
		return &Mapping{Entries: entries}
	default:
		return v
	}
}

// Equal compares primitives and containers structurally and references by
// identity of the underlying instance. A Regex compared against a String is
// true when the pattern finds the string
func Equal(a, b Value) bool {
	if r, ok := a.(*Regex); ok {
		return regexEqual(r, b)
	}
	if r, ok := b.(*Regex); ok {
		return regexEqual(r, a)
	}
	if na, nb := numeric(a), numeric(b); na && nb {
		fa, _ := AsFloat(a)
		fb, _ := AsFloat(b)
		return fa == fb
	}

	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case String:
		bs, ok := b.(String)
		return ok && a == bs
	case *List:
		bl, ok := b.(*List)
		return ok && itemsEqual(a.Items, bl.Items)
	case *Set:
		bs, ok := b.(*Set)
		if !ok || len(a.Items) != len(bs.Items) {
			return false
		}
		for _, item := range a.Items {
			if !bs.Contains(item) {
				return false
			}
		}
		return true
	case *Mapping:
		bm, ok := b.(*Mapping)
		if !ok || len(a.Entries) != len(bm.Entries) {
			return false
		}
		for _, e := range a.Entries {
			val, found := bm.Get(e.Key)
			if !found || !Equal(e.Val, val) {
				return false
			}
		}
		return true
	case *Reference:
		br, ok := b.(*Reference)
		return ok && a.Target == br.Target
	default:
		return false
	}
}

// Truthy reports the boolean interpretation of a value: false, zero, empty
// string, and empty containers are false; everything else is true
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v != 0
	case Float:
		return v != 0
	case String:
		return v != ""
	case *List:
		return len(v.Items) > 0
	case *Set:
		return len(v.Items) > 0
	case *Mapping:
		return len(v.Entries) > 0
	default:
		return true
	}
}

// AsFloat converts numeric values to a float64
func AsFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), true
	case Float:
		return float64(v), true
	default:
		return 0, false
	}
}

func numeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

func regexEqual(r *Regex, other Value) bool {
	switch other := other.(type) {
	case *Regex:
		return r.Source == other.Source
	case String:
		return r.Matches(string(other))
	default:
		return false
	}
}

func itemsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i, item := range a {
		if !Equal(item, b[i]) {
			return false
		}
	}
	return true
}
