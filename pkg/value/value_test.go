package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/colloquy/pkg/value"
)

type fakeReferent struct {
	kind  value.Kind
	uid   string
	attrs map[string]value.Value
}

func (f *fakeReferent) RefKind() value.Kind { return f.kind }
func (f *fakeReferent) RefUID() string      { return f.uid }

func (f *fakeReferent) Attr(name string) (value.Value, error) {
	if v, ok := f.attrs[name]; ok {
		return v, nil
	}
	return nil, value.ErrAttribute
}

func TestCopyIsDeepForContainers(t *testing.T) {
	orig := value.NewList(value.Int(1), value.Int(2))
	dup := value.Copy(orig).(*value.List)

	orig.Append(value.Int(3))
	assert.Len(t, dup.Items, 2)
	assert.True(t, value.Equal(dup, value.NewList(value.Int(1), value.Int(2))))
}

func TestCopyNestedMapping(t *testing.T) {
	inner := value.NewList(value.String("a"))
	m := value.NewMapping()
	m.Set(value.String("items"), inner)

	dup := value.Copy(m).(*value.Mapping)
	inner.Append(value.String("b"))

	copied, ok := dup.Get(value.String("items"))
	require.True(t, ok)
	assert.Len(t, copied.(*value.List).Items, 1)
}

func TestCopySharesReferences(t *testing.T) {
	target := &fakeReferent{kind: value.KindFlow, uid: "f-1"}
	ref := value.NewReference(target)

	dup := value.Copy(ref).(*value.Reference)
	assert.Same(t, target, dup.Target.(*fakeReferent))
	assert.True(t, value.Equal(ref, dup))
}

func TestEqualStructural(t *testing.T) {
	a := value.NewMapping()
	a.Set(value.String("x"), value.NewList(value.Int(1)))
	b := value.NewMapping()
	b.Set(value.String("x"), value.NewList(value.Int(1)))

	assert.True(t, value.Equal(a, b))

	b.Set(value.String("x"), value.NewList(value.Int(2)))
	assert.False(t, value.Equal(a, b))
}

func TestEqualNumericPromotion(t *testing.T) {
	assert.True(t, value.Equal(value.Int(2), value.Float(2.0)))
	assert.False(t, value.Equal(value.Int(2), value.Float(2.5)))
}

func TestEqualReferencesByIdentity(t *testing.T) {
	t1 := &fakeReferent{kind: value.KindEvent, uid: "e-1"}
	t2 := &fakeReferent{kind: value.KindEvent, uid: "e-1"}

	assert.True(t,
		value.Equal(value.NewReference(t1), value.NewReference(t1)))
	assert.False(t,
		value.Equal(value.NewReference(t1), value.NewReference(t2)))
}

func TestEqualSetIgnoresOrder(t *testing.T) {
	a := value.NewSet(value.Int(1), value.Int(2))
	b := value.NewSet(value.Int(2), value.Int(1))
	assert.True(t, value.Equal(a, b))
}

func TestRegexEquality(t *testing.T) {
	re, err := value.CompileRegex("^he[l]+o")
	require.NoError(t, err)

	assert.True(t, value.Equal(re, value.String("hello world")))
	assert.False(t, value.Equal(re, value.String("goodbye")))

	same, err := value.CompileRegex("^he[l]+o")
	require.NoError(t, err)
	assert.True(t, value.Equal(re, same))
}

func TestAttrOnMapping(t *testing.T) {
	m := value.NewMapping()
	m.Set(value.String("name"), value.String("John"))

	v, err := value.Attr(m, "name")
	require.NoError(t, err)
	assert.Equal(t, value.String("John"), v)

	_, err = value.Attr(m, "missing")
	assert.ErrorIs(t, err, value.ErrAttribute)
}

func TestAttrOnReference(t *testing.T) {
	target := &fakeReferent{
		kind: value.KindAction,
		uid:  "a-1",
		attrs: map[string]value.Value{
			"status": value.String("started"),
		},
	}
	ref := value.NewReference(target)

	v, err := value.Attr(ref, "status")
	require.NoError(t, err)
	assert.Equal(t, value.String("started"), v)
}

func TestIndexErrors(t *testing.T) {
	list := value.NewList(value.Int(1))

	_, err := value.Index(list, value.Int(5))
	assert.ErrorIs(t, err, value.ErrIndex)

	_, err = value.Index(list, value.String("x"))
	assert.ErrorIs(t, err, value.ErrIndex)

	m := value.NewMapping()
	_, err = value.Index(m, value.String("absent"))
	assert.ErrorIs(t, err, value.ErrKey)

	_, err = value.Index(value.Int(3), value.Int(0))
	assert.ErrorIs(t, err, value.ErrIndex)
}

func TestIndexNegative(t *testing.T) {
	list := value.NewList(value.Int(1), value.Int(2), value.Int(3))
	v, err := value.Index(list, value.Int(-1))
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)
}

func TestStrForms(t *testing.T) {
	assert.Equal(t, "None", value.Str(value.Null{}))
	assert.Equal(t, "True", value.Str(value.Bool(true)))
	assert.Equal(t, "3", value.Str(value.Int(3)))
	assert.Equal(t, "2.5", value.Str(value.Float(2.5)))
	assert.Equal(t, "hi", value.Str(value.String("hi")))
}

func TestPrettyContainers(t *testing.T) {
	m := value.NewMapping()
	m.Set(value.String("name"), value.String("John"))
	m.Set(value.String("tags"), value.NewList(value.Int(1), value.Int(2)))

	assert.Equal(t, `{"name": "John", "tags": [1, 2]}`, value.Pretty(m))
	assert.Equal(t, `{1, 2}`,
		value.Pretty(value.NewSet(value.Int(1), value.Int(2))))
}

func TestTruthy(t *testing.T) {
	assert.False(t, value.Truthy(value.Null{}))
	assert.False(t, value.Truthy(value.Int(0)))
	assert.False(t, value.Truthy(value.String("")))
	assert.False(t, value.Truthy(value.NewList()))
	assert.True(t, value.Truthy(value.Float(0.1)))
	assert.True(t, value.Truthy(value.NewList(value.Null{})))
}

func TestFromAnyRoundTrip(t *testing.T) {
	v := value.FromAny(map[string]any{
		"count": float64(3),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
	})

	m, ok := v.(*value.Mapping)
	require.True(t, ok)

	count, ok := m.Get(value.String("count"))
	require.True(t, ok)
	assert.Equal(t, value.Int(3), count)

	ratio, ok := m.Get(value.String("ratio"))
	require.True(t, ok)
	assert.Equal(t, value.Float(0.5), ratio)

	assert.Equal(t, map[string]any{
		"count": int64(3),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
	}, value.ToAny(m))
}
