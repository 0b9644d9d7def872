package eval_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/colloquy/internal/eval"
	"github.com/kode4food/colloquy/pkg/value"
)

type (
	mapScope map[string]value.Value

	stubEnv struct {
		flows value.Value
	}
)

func (s mapScope) Lookup(name string) (value.Value, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("undefined variable $%s", name)
}

func (e *stubEnv) Rand() float64 { return 0.5 }

func (e *stubEnv) RandInt(n int64) int64 { return n - 1 }

func (e *stubEnv) NewUID() string { return "uid-1" }

func (e *stubEnv) FlowsInfo() value.Value {
	if e.flows != nil {
		return e.flows
	}
	return value.NewMapping()
}

func evalSrc(t *testing.T, src string, scope mapScope) value.Value {
	t.Helper()
	if scope == nil {
		scope = mapScope{}
	}
	v, err := eval.EvalString(src, scope, &stubEnv{})
	require.NoError(t, err, "source: %s", src)
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	// ** binds above % and /, which bind above +
	v := evalSrc(t, "21 + 19 / 7 + (8 % 3) ** 9", nil)
	f, ok := v.(value.Float)
	require.True(t, ok)
	assert.InDelta(t, 535.714285, float64(f), 0.0001)

	assert.Equal(t, value.Int(7), evalSrc(t, "1 + 2 * 3", nil))
	assert.Equal(t, value.Int(9), evalSrc(t, "(1 + 2) * 3", nil))
	assert.Equal(t, value.Int(-4), evalSrc(t, "-2 ** 2", nil))
	assert.Equal(t, value.Int(512), evalSrc(t, "2 ** 3 ** 2", nil))
}

func TestDivisionAlwaysFloat(t *testing.T) {
	assert.Equal(t, value.Float(2), evalSrc(t, "4 / 2", nil))
	assert.Equal(t, value.Float(2.5), evalSrc(t, "5 / 2", nil))
}

func TestComparisons(t *testing.T) {
	assert.Equal(t, value.Bool(true), evalSrc(t, "1 < 2", nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "2.0 == 2", nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, `"abc" < "abd"`, nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "3 >= 3", nil))
	assert.Equal(t, value.Bool(false), evalSrc(t, "1 != 1", nil))
}

func TestLogicalShortCircuit(t *testing.T) {
	// the right operand would fail with an undefined variable; it must
	// never be evaluated
	assert.Equal(t, value.Bool(false),
		evalSrc(t, "False and $missing", nil))
	assert.Equal(t, value.Bool(true),
		evalSrc(t, "True or $missing", nil))

	// and/or yield the deciding operand
	assert.Equal(t, value.String("fallback"),
		evalSrc(t, `"" or "fallback"`, nil))
	assert.Equal(t, value.Int(2), evalSrc(t, "1 and 2", nil))
}

func TestBitwise(t *testing.T) {
	assert.Equal(t, value.Int(6), evalSrc(t, "2 | 4", nil))
	assert.Equal(t, value.Int(1), evalSrc(t, "5 & 3", nil))
	assert.Equal(t, value.Int(6), evalSrc(t, "5 ^ 3", nil))
	assert.Equal(t, value.Int(8), evalSrc(t, "1 << 3", nil))
	assert.Equal(t, value.Int(2), evalSrc(t, "8 >> 2", nil))
	assert.Equal(t, value.Int(-6), evalSrc(t, "~5", nil))
}

func TestConditionalExpression(t *testing.T) {
	assert.Equal(t, value.String("yes"),
		evalSrc(t, `"yes" if 1 < 2 else "no"`, nil))
	assert.Equal(t, value.String("no"),
		evalSrc(t, `"yes" if 1 > 2 else "no"`, nil))

	// right-associative chaining through the else branch
	assert.Equal(t, value.String("b"),
		evalSrc(t, `"a" if False else "b" if True else "c"`, nil))
}

func TestMembership(t *testing.T) {
	scope := mapScope{
		"items": value.NewList(value.Int(1), value.Int(2)),
	}
	assert.Equal(t, value.Bool(true), evalSrc(t, "1 in $items", scope))
	assert.Equal(t, value.Bool(false), evalSrc(t, "3 in $items", scope))
	assert.Equal(t, value.Bool(true), evalSrc(t, `"el" in "hello"`, nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, `"a" in {"a": 1}`, nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "2 in {1, 2}", nil))
}

func TestIndexingAndAttributes(t *testing.T) {
	m := value.NewMapping()
	m.Set(value.String("name"), value.String("John"))
	scope := mapScope{
		"user":  m,
		"items": value.NewList(value.Int(10), value.Int(20)),
	}

	assert.Equal(t, value.String("John"),
		evalSrc(t, "$user.name", scope))
	assert.Equal(t, value.String("John"),
		evalSrc(t, `$user["name"]`, scope))
	assert.Equal(t, value.Int(20), evalSrc(t, "$items[1]", scope))
	assert.Equal(t, value.Int(20), evalSrc(t, "$items[-1]", scope))
}

func TestAccessFailuresAreTyped(t *testing.T) {
	scope := mapScope{
		"user":  value.NewMapping(),
		"items": value.NewList(),
	}

	_, err := eval.EvalString("$user.missing", scope, &stubEnv{})
	assert.ErrorIs(t, err, value.ErrAttribute)

	_, err = eval.EvalString(`$user["missing"]`, scope, &stubEnv{})
	assert.ErrorIs(t, err, value.ErrKey)

	_, err = eval.EvalString("$items[0]", scope, &stubEnv{})
	assert.ErrorIs(t, err, value.ErrIndex)
}

func TestEvalErrorKinds(t *testing.T) {
	_, err := eval.EvalString("1 / 0", mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrDivisionByZero)

	_, err = eval.EvalString("5 % 0", mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrDivisionByZero)

	_, err = eval.EvalString(`"a" - 1`, mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrTypeMismatch)

	_, err = eval.EvalString("nope(1)", mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrUnknownFunction)

	_, err = eval.EvalString("1 +", mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrSyntax)
}

func TestBuiltins(t *testing.T) {
	assert.Equal(t, value.Int(5), evalSrc(t, `len("hello")`, nil))
	assert.Equal(t, value.Int(2), evalSrc(t, "len([1, 2])", nil))
	assert.Equal(t, value.Int(3), evalSrc(t, `int("3")`, nil))
	assert.Equal(t, value.Int(3), evalSrc(t, "int(3.9)", nil))
	assert.Equal(t, value.Float(2), evalSrc(t, "float(2)", nil))
	assert.Equal(t, value.String("3"), evalSrc(t, "str(3)", nil))
	assert.Equal(t, value.String("int"), evalSrc(t, "type(3)", nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "is_int(3)", nil))
	assert.Equal(t, value.Bool(false), evalSrc(t, `is_int("3")`, nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, `is_str("3")`, nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "is_float(0.5)", nil))
	assert.Equal(t, value.Bool(true), evalSrc(t, "is_bool(True)", nil))
	assert.Equal(t, value.String(`[1, "a"]`),
		evalSrc(t, `pretty_str([1, "a"])`, nil))
	assert.Equal(t, value.String(`line\n`),
		evalSrc(t, `escape("line\n")`, nil))
}

func TestListBuiltin(t *testing.T) {
	assert.Equal(t,
		value.NewList(value.String("a"), value.String("b")),
		evalSrc(t, `list("ab")`, nil))

	// characters, not bytes
	assert.Equal(t,
		value.NewList(
			value.String("h"), value.String("é"), value.String("i")),
		evalSrc(t, `list("héi")`, nil))
	assert.Equal(t, value.String(`["h", "é", "i"]`),
		evalSrc(t, `pretty_str(list("héi"))`, nil))

	assert.Equal(t, value.NewList(value.Int(1), value.Int(2)),
		evalSrc(t, "list({1, 2})", nil))
	assert.Equal(t, value.NewList(value.String("k")),
		evalSrc(t, `list({"k": 1})`, nil))
}

func TestRegexBuiltins(t *testing.T) {
	assert.Equal(t, value.Bool(true),
		evalSrc(t, `is_regex(regex("a+"))`, nil))
	assert.Equal(t, value.Bool(true),
		evalSrc(t, `search(regex("wor\\w+"), "hello world")`, nil))
	assert.Equal(t, value.Bool(true),
		evalSrc(t, `search("wor", "hello world")`, nil))
	assert.Equal(t,
		value.NewList(value.String("ab"), value.String("ab")),
		evalSrc(t, `findall(regex("ab"), "ab ab")`, nil).(*value.List))
	assert.Equal(t, value.Bool(true),
		evalSrc(t, `regex("^an") == "answer"`, nil))
}

func TestEntropyBuiltins(t *testing.T) {
	assert.Equal(t, value.Float(0.5), evalSrc(t, "rand()", nil))
	assert.Equal(t, value.Int(9), evalSrc(t, "randint(10)", nil))
	assert.Equal(t, value.String("uid-1"), evalSrc(t, "uid()", nil))
}

func TestFlowsInfoBuiltin(t *testing.T) {
	record := value.NewMapping()
	record.Set(value.String("status"), value.String("started"))
	flows := value.NewMapping()
	flows.Set(value.String("uid-1"), record)

	env := &stubEnv{flows: flows}
	v, err := eval.EvalString("flows_info()", mapScope{}, env)
	require.NoError(t, err)
	assert.True(t, value.Equal(flows, v))

	v, err = eval.EvalString(`flows_info("uid-1").status`, mapScope{}, env)
	require.NoError(t, err)
	assert.Equal(t, value.String("started"), v)

	_, err = eval.EvalString(`flows_info("nope")`, mapScope{}, env)
	assert.ErrorIs(t, err, value.ErrKey)
}

func TestContainerDisplays(t *testing.T) {
	v := evalSrc(t, `{"a": 1, "b": [2, 3]}`, nil)
	m, ok := v.(*value.Mapping)
	require.True(t, ok)
	b, ok := m.Get(value.String("b"))
	require.True(t, ok)
	assert.Equal(t, value.NewList(value.Int(2), value.Int(3)), b)

	s, ok := evalSrc(t, "{1, 2, 2}", nil).(*value.Set)
	require.True(t, ok)
	assert.Len(t, s.Items, 2)
}

func TestContainerMethods(t *testing.T) {
	list := value.NewList(value.Int(1))
	scope := mapScope{"a": list}
	evalSrc(t, "$a.append(2)", scope)
	assert.Equal(t, value.NewList(value.Int(1), value.Int(2)), list)

	m := value.NewMapping()
	m.Set(value.String("x"), value.Int(1))
	scope = mapScope{"m": m}
	assert.Equal(t, value.NewList(value.String("x")),
		evalSrc(t, "$m.keys()", scope))
}

func TestInterpolation(t *testing.T) {
	scope := mapScope{"name": value.String("John")}

	v := evalSrc(t, `"Hi {$name}!"`, scope)
	assert.Equal(t, value.String("Hi John!"), v)

	v = evalSrc(t, `"{{literal}}"`, nil)
	assert.Equal(t, value.String("{literal}"), v)

	v = evalSrc(t, `"sum is {1 + 2}"`, nil)
	assert.Equal(t, value.String("sum is 3"), v)

	_, err := eval.EvalString(`"{1 +}"`, mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrSyntax)

	_, err = eval.EvalString(`"{unclosed"`, mapScope{}, &stubEnv{})
	assert.ErrorIs(t, err, eval.ErrSyntax)
}

func TestInterpolateDirect(t *testing.T) {
	scope := mapScope{"count": value.Int(2)}
	s, err := eval.Interpolate(
		"there {'is' if $count == 1 else 'are'} {$count}",
		scope, &stubEnv{})
	require.NoError(t, err)
	assert.Equal(t, "there are 2", s)
}
