package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kode4food/colloquy/pkg/value"
)

type builtin func(args []value.Value, env Env) (value.Value, error)

// The builtin library is closed: flows cannot register additional functions
var builtins = map[string]builtin{
	"len":        builtinLen,
	"regex":      builtinRegex,
	"search":     builtinSearch,
	"findall":    builtinFindall,
	"uid":        builtinUID,
	"int":        builtinInt,
	"float":      builtinFloat,
	"str":        builtinStr,
	"pretty_str": builtinPrettyStr,
	"escape":     builtinEscape,
	"is_bool":    isKind(value.KindBool),
	"is_int":     isKind(value.KindInt),
	"is_float":   isKind(value.KindFloat),
	"is_str":     isKind(value.KindString),
	"is_regex":   isKind(value.KindRegex),
	"type":       builtinType,
	"list":       builtinList,
	"rand":       builtinRand,
	"randint":    builtinRandint,
	"flows_info": builtinFlowsInfo,
}

func evalCall(expr *Call, scope Scope, env Env) (value.Value, error) {
	fn, ok := builtins[expr.Fn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, expr.Fn)
	}
	args, err := evalItems(expr.Args, scope, env)
	if err != nil {
		return nil, err
	}
	res, err := fn(args, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expr.Fn, err)
	}
	return res, nil
}

func evalMethod(expr *Method, scope Scope, env Env) (value.Value, error) {
	x, err := Eval(expr.X, scope, env)
	if err != nil {
		return nil, err
	}
	args, err := evalItems(expr.Args, scope, env)
	if err != nil {
		return nil, err
	}

	switch x := x.(type) {
	case *value.List:
		if expr.Name == "append" {
			if len(args) != 1 {
				return nil, argCountErr("append", 1, len(args))
			}
			x.Append(args[0])
			return value.Null{}, nil
		}
	case *value.Set:
		if expr.Name == "add" {
			if len(args) != 1 {
				return nil, argCountErr("add", 1, len(args))
			}
			x.Add(args[0])
			return value.Null{}, nil
		}
	case *value.Mapping:
		switch expr.Name {
		case "keys":
			return &value.List{Items: x.Keys()}, nil
		case "values":
			return &value.List{Items: x.Values()}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q has no method %q",
		value.ErrAttribute, x.Kind(), expr.Name)
}

func builtinLen(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("len", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.String:
		return value.Int(len(v)), nil
	case *value.List:
		return value.Int(len(v.Items)), nil
	case *value.Set:
		return value.Int(len(v.Items)), nil
	case *value.Mapping:
		return value.Int(len(v.Entries)), nil
	default:
		return nil, fmt.Errorf("%w: %q has no length",
			ErrTypeMismatch, v.Kind())
	}
}

func builtinRegex(args []value.Value, _ Env) (value.Value, error) {
	src, err := oneString(args)
	if err != nil {
		return nil, err
	}
	re, err := value.CompileRegex(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	return re, nil
}

func builtinSearch(args []value.Value, _ Env) (value.Value, error) {
	re, s, err := patternArgs(args)
	if err != nil {
		return nil, err
	}
	return value.Bool(re.Matches(s)), nil
}

func builtinFindall(args []value.Value, _ Env) (value.Value, error) {
	re, s, err := patternArgs(args)
	if err != nil {
		return nil, err
	}
	found := re.Pattern.FindAllString(s, -1)
	items := make([]value.Value, len(found))
	for i, m := range found {
		items[i] = value.String(m)
	}
	return &value.List{Items: items}, nil
}

func builtinUID(args []value.Value, env Env) (value.Value, error) {
	if len(args) != 0 {
		return nil, argCountErr("uid", 0, len(args))
	}
	return value.String(env.NewUID()), nil
}

func builtinInt(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("int", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Int:
		return v, nil
	case value.Float:
		return value.Int(v), nil
	case value.Bool:
		if v {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer",
				ErrBadArgument, string(v))
		}
		return value.Int(n), nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %q to int",
			ErrTypeMismatch, v.Kind())
	}
}

func builtinFloat(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("float", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Int:
		return value.Float(v), nil
	case value.Float:
		return v, nil
	case value.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number",
				ErrBadArgument, string(v))
		}
		return value.Float(f), nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %q to float",
			ErrTypeMismatch, v.Kind())
	}
}

func builtinStr(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("str", 1, len(args))
	}
	return value.String(value.Str(args[0])), nil
}

func builtinPrettyStr(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("pretty_str", 1, len(args))
	}
	return value.String(value.Pretty(args[0])), nil
}

func builtinEscape(args []value.Value, _ Env) (value.Value, error) {
	s, err := oneString(args)
	if err != nil {
		return nil, err
	}
	quoted := strconv.Quote(s)
	return value.String(quoted[1 : len(quoted)-1]), nil
}

func builtinType(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("type", 1, len(args))
	}
	return value.String(value.TypeName(args[0])), nil
}

func builtinList(args []value.Value, _ Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("list", 1, len(args))
	}
	switch v := args[0].(type) {
	case *value.List:
		return value.Copy(v), nil
	case *value.Set:
		items := make([]value.Value, len(v.Items))
		copy(items, v.Items)
		return &value.List{Items: items}, nil
	case *value.Mapping:
		return &value.List{Items: v.Keys()}, nil
	case value.String:
		var items []value.Value
		for _, r := range v {
			items = append(items, value.String(string(r)))
		}
		return &value.List{Items: items}, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %q to list",
			ErrTypeMismatch, v.Kind())
	}
}

func builtinRand(args []value.Value, env Env) (value.Value, error) {
	if len(args) != 0 {
		return nil, argCountErr("rand", 0, len(args))
	}
	return value.Float(env.Rand()), nil
}

func builtinRandint(args []value.Value, env Env) (value.Value, error) {
	if len(args) != 1 {
		return nil, argCountErr("randint", 1, len(args))
	}
	n, ok := args[0].(value.Int)
	if !ok || n <= 0 {
		return nil, fmt.Errorf("%w: randint requires a positive int",
			ErrBadArgument)
	}
	return value.Int(env.RandInt(int64(n))), nil
}

func builtinFlowsInfo(args []value.Value, env Env) (value.Value, error) {
	info := env.FlowsInfo()
	switch len(args) {
	case 0:
		return info, nil
	case 1:
		return value.Index(info, args[0])
	default:
		return nil, argCountErr("flows_info", 1, len(args))
	}
}

func isKind(kind value.Kind) builtin {
	return func(args []value.Value, _ Env) (value.Value, error) {
		if len(args) != 1 {
			return nil, argCountErr(string(kind), 1, len(args))
		}
		return value.Bool(args[0].Kind() == kind), nil
	}
}

func oneString(args []value.Value) (string, error) {
	if len(args) != 1 {
		return "", argCountErr("", 1, len(args))
	}
	s, ok := args[0].(value.String)
	if !ok {
		return "", fmt.Errorf("%w: expected a string, got %q",
			ErrTypeMismatch, args[0].Kind())
	}
	return string(s), nil
}

func patternArgs(args []value.Value) (*value.Regex, string, error) {
	if len(args) != 2 {
		return nil, "", argCountErr("", 2, len(args))
	}
	s, ok := args[1].(value.String)
	if !ok {
		return nil, "", fmt.Errorf("%w: expected a string, got %q",
			ErrTypeMismatch, args[1].Kind())
	}
	switch p := args[0].(type) {
	case *value.Regex:
		return p, string(s), nil
	case value.String:
		re, err := value.CompileRegex(string(p))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadArgument, err)
		}
		return re, string(s), nil
	default:
		return nil, "", fmt.Errorf("%w: expected a pattern, got %q",
			ErrTypeMismatch, p.Kind())
	}
}

func argCountErr(fn string, want, got int) error {
	if fn == "" {
		return fmt.Errorf("%w: expected %d arguments, got %d",
			ErrBadArgument, want, got)
	}
	return fmt.Errorf("%w: %s expects %d arguments, got %d",
		ErrBadArgument, fn, want, got)
}
