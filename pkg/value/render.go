package value

import (
	"strconv"
	"strings"
)

// Str converts a value to its plain string form, as the str() builtin and
// string interpolation see it
func Str(v Value) string {
	switch v := v.(type) {
	case Null:
		return "None"
	case Bool:
		if v {
			return "True"
		}
		return "False"
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case String:
		return string(v)
	case *Regex:
		return v.Source
	case *Reference:
		return string(v.Target.RefKind()) + ":" + v.Target.RefUID()
	default:
		return Pretty(v)
	}
}

// Pretty renders a value in display form: strings quoted, containers
// bracketed, entries in insertion order. The output is deterministic and
// stable across runs
func Pretty(v Value) string {
	var b strings.Builder
	writePretty(&b, v)
	return b.String()
}

// TypeName reports the kind name used by the type() builtin
func TypeName(v Value) string {
	if r, ok := v.(*Reference); ok {
		return string(r.Target.RefKind())
	}
	return string(v.Kind())
}

func writePretty(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case String:
		b.WriteString(strconv.Quote(string(v)))
	case *List:
		b.WriteByte('[')
		writeItems(b, v.Items)
		b.WriteByte(']')
	case *Set:
		b.WriteByte('{')
		writeItems(b, v.Items)
		b.WriteByte('}')
	case *Mapping:
		b.WriteByte('{')
		for i, e := range v.Entries {
			if i > 0 {
				b.WriteString(", ")
			}
			writePretty(b, e.Key)
			b.WriteString(": ")
			writePretty(b, e.Val)
		}
		b.WriteByte('}')
	case *Regex:
		b.WriteString("regex(")
		b.WriteString(strconv.Quote(v.Source))
		b.WriteByte(')')
	default:
		b.WriteString(Str(v))
	}
}

func writeItems(b *strings.Builder, items []Value) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		writePretty(b, item)
	}
}
