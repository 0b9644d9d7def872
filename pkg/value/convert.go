package value

import (
	"fmt"
	"math"
	"slices"

	"github.com/tidwall/gjson"
)

// FromAny converts a plain Go value (JSON-shaped: nil, bool, numbers,
// string, []any, map[string]any) into a Value. Unrecognized types become
// their string form
func FromAny(v any) Value {
	switch v := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(v)
	case int:
		return Int(v)
	case int64:
		return Int(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return Int(int64(v))
		}
		return Float(v)
	case string:
		return String(v)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return &List{Items: items}
	case map[string]any:
		m := NewMapping()
		for _, k := range sortedKeys(v) {
			m.Set(String(k), FromAny(v[k]))
		}
		return m
	case Value:
		return v
	default:
		return String(fmt.Sprint(v))
	}
}

// ToAny converts a Value back into a plain Go value for JSON encoding and
// snapshot records. References flatten to their kind-qualified uid
func ToAny(v Value) any {
	switch v := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case String:
		return string(v)
	case *List:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = ToAny(item)
		}
		return items
	case *Set:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = ToAny(item)
		}
		return items
	case *Mapping:
		m := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			m[Str(e.Key)] = ToAny(e.Val)
		}
		return m
	case *Regex:
		return v.Source
	case *Reference:
		return Str(v)
	default:
		return nil
	}
}

// FromJSON converts a parsed JSON document into a Value, preserving object
// key order. Hosts use this to expose configuration documents as read-only
// structured values
func FromJSON(res gjson.Result) Value {
	switch {
	case res.Type == gjson.Null:
		return Null{}
	case res.Type == gjson.True:
		return Bool(true)
	case res.Type == gjson.False:
		return Bool(false)
	case res.Type == gjson.String:
		return String(res.Str)
	case res.Type == gjson.Number:
		if res.Num == math.Trunc(res.Num) && !math.IsInf(res.Num, 0) {
			return Int(int64(res.Num))
		}
		return Float(res.Num)
	case res.IsArray():
		list := &List{}
		res.ForEach(func(_, item gjson.Result) bool {
			list.Append(FromJSON(item))
			return true
		})
		return list
	case res.IsObject():
		m := NewMapping()
		res.ForEach(func(key, item gjson.Result) bool {
			m.Set(String(key.Str), FromJSON(item))
			return true
		})
		return m
	default:
		return Null{}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
