// Package eval implements the embedded expression language: a tokenizer and
// parser for arithmetic, comparison, logical, bitwise, conditional,
// membership, and access expressions, an evaluator over the runtime value
// model, a closed builtin function library, and string interpolation
package eval

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kode4food/colloquy/pkg/value"
)

type (
	// Scope resolves $name variable references during evaluation
	Scope interface {
		Lookup(name string) (value.Value, error)
	}

	// Env supplies the impure builtins: process-wide entropy for rand,
	// randint, and uid, and live flow-instance state for flows_info
	Env interface {
		Rand() float64
		RandInt(n int64) int64
		NewUID() string
		FlowsInfo() value.Value
	}
)

var (
	// ErrTypeMismatch is returned when operands do not support an operator
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero is returned for division or modulo by zero
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownFunction is returned for a call to an undefined function
	ErrUnknownFunction = errors.New("unknown function")

	// ErrBadArgument is returned when a builtin rejects its arguments
	ErrBadArgument = errors.New("bad argument")
)

// Eval evaluates a parsed expression against a variable scope. Every failure
// is a typed error; no panic escapes
func Eval(expr Expr, scope Scope, env Env) (value.Value, error) {
	switch expr := expr.(type) {
	case *Literal:
		return expr.Val, nil
	case *StringLit:
		s, err := Interpolate(expr.Raw, scope, env)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case *Var:
		return scope.Lookup(expr.Name)
	case *ListDisplay:
		items, err := evalItems(expr.Items, scope, env)
		if err != nil {
			return nil, err
		}
		return &value.List{Items: items}, nil
	case *SetDisplay:
		items, err := evalItems(expr.Items, scope, env)
		if err != nil {
			return nil, err
		}
		return value.NewSet(items...), nil
	case *MapDisplay:
		m := value.NewMapping()
		for _, e := range expr.Entries {
			key, err := Eval(e.Key, scope, env)
			if err != nil {
				return nil, err
			}
			val, err := Eval(e.Val, scope, env)
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case *Unary:
		return evalUnary(expr, scope, env)
	case *Binary:
		return evalBinary(expr, scope, env)
	case *Cond:
		test, err := Eval(expr.Test, scope, env)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return Eval(expr.Then, scope, env)
		}
		return Eval(expr.Other, scope, env)
	case *Attr:
		x, err := Eval(expr.X, scope, env)
		if err != nil {
			return nil, err
		}
		return value.Attr(x, expr.Name)
	case *Index:
		x, err := Eval(expr.X, scope, env)
		if err != nil {
			return nil, err
		}
		key, err := Eval(expr.Key, scope, env)
		if err != nil {
			return nil, err
		}
		return value.Index(x, key)
	case *Call:
		return evalCall(expr, scope, env)
	case *Method:
		return evalMethod(expr, scope, env)
	default:
		return nil, fmt.Errorf("%w: unsupported expression", ErrSyntax)
	}
}

// EvalString parses and evaluates an expression source string
func EvalString(src string, scope Scope, env Env) (value.Value, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Eval(expr, scope, env)
}

func evalItems(items []Expr, scope Scope, env Env) ([]value.Value, error) {
	vals := make([]value.Value, len(items))
	for i, item := range items {
		val, err := Eval(item, scope, env)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func evalUnary(expr *Unary, scope Scope, env Env) (value.Value, error) {
	x, err := Eval(expr.X, scope, env)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case "not":
		return value.Bool(!value.Truthy(x)), nil
	case "-":
		switch x := x.(type) {
		case value.Int:
			return -x, nil
		case value.Float:
			return -x, nil
		}
		return nil, typeErr1("-", x)
	case "~":
		if i, ok := x.(value.Int); ok {
			return ^i, nil
		}
		return nil, typeErr1("~", x)
	}
	return nil, fmt.Errorf("%w: operator %q", ErrSyntax, expr.Op)
}

func evalBinary(expr *Binary, scope Scope, env Env) (value.Value, error) {
	// and/or short-circuit and yield the deciding operand
	switch expr.Op {
	case "and":
		x, err := Eval(expr.X, scope, env)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(x) {
			return x, nil
		}
		return Eval(expr.Y, scope, env)
	case "or":
		x, err := Eval(expr.X, scope, env)
		if err != nil {
			return nil, err
		}
		if value.Truthy(x) {
			return x, nil
		}
		return Eval(expr.Y, scope, env)
	}

	x, err := Eval(expr.X, scope, env)
	if err != nil {
		return nil, err
	}
	y, err := Eval(expr.Y, scope, env)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case "==":
		return value.Bool(value.Equal(x, y)), nil
	case "!=":
		return value.Bool(!value.Equal(x, y)), nil
	case "<", ">", "<=", ">=":
		return compare(expr.Op, x, y)
	case "in":
		return membership(x, y)
	case "+", "-", "*", "/", "%", "**":
		return arithmetic(expr.Op, x, y)
	case "|", "^", "&", "<<", ">>":
		return bitwise(expr.Op, x, y)
	}
	return nil, fmt.Errorf("%w: operator %q", ErrSyntax, expr.Op)
}

func compare(op string, x, y value.Value) (value.Value, error) {
	if xs, ok := x.(value.String); ok {
		ys, ok := y.(value.String)
		if !ok {
			return nil, typeErr2(op, x, y)
		}
		return value.Bool(strCompare(op, string(xs), string(ys))), nil
	}
	xf, xok := value.AsFloat(x)
	yf, yok := value.AsFloat(y)
	if !xok || !yok {
		return nil, typeErr2(op, x, y)
	}
	switch op {
	case "<":
		return value.Bool(xf < yf), nil
	case ">":
		return value.Bool(xf > yf), nil
	case "<=":
		return value.Bool(xf <= yf), nil
	default:
		return value.Bool(xf >= yf), nil
	}
}

func strCompare(op, x, y string) bool {
	switch op {
	case "<":
		return x < y
	case ">":
		return x > y
	case "<=":
		return x <= y
	default:
		return x >= y
	}
}

func membership(x, container value.Value) (value.Value, error) {
	switch c := container.(type) {
	case *value.List:
		for _, item := range c.Items {
			if value.Equal(item, x) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case *value.Set:
		return value.Bool(c.Contains(x)), nil
	case *value.Mapping:
		_, ok := c.Get(x)
		return value.Bool(ok), nil
	case value.String:
		s, ok := x.(value.String)
		if !ok {
			return nil, typeErr2("in", x, container)
		}
		return value.Bool(strings.Contains(string(c), string(s))), nil
	default:
		return nil, typeErr2("in", x, container)
	}
}

func arithmetic(op string, x, y value.Value) (value.Value, error) {
	if op == "+" {
		switch x := x.(type) {
		case value.String:
			if ys, ok := y.(value.String); ok {
				return x + ys, nil
			}
			return nil, typeErr2(op, x, y)
		case *value.List:
			if yl, ok := y.(*value.List); ok {
				items := make([]value.Value, 0,
					len(x.Items)+len(yl.Items))
				items = append(items, x.Items...)
				items = append(items, yl.Items...)
				return &value.List{Items: items}, nil
			}
			return nil, typeErr2(op, x, y)
		}
	}

	xi, xIsInt := x.(value.Int)
	yi, yIsInt := y.(value.Int)
	if xIsInt && yIsInt {
		return intArithmetic(op, xi, yi)
	}

	xf, xok := value.AsFloat(x)
	yf, yok := value.AsFloat(y)
	if !xok || !yok {
		return nil, typeErr2(op, x, y)
	}
	return floatArithmetic(op, xf, yf)
}

func intArithmetic(op string, x, y value.Int) (value.Value, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("%w: %d / 0", ErrDivisionByZero, x)
		}
		// true division always yields a float
		return value.Float(float64(x) / float64(y)), nil
	case "%":
		if y == 0 {
			return nil, fmt.Errorf("%w: %d %% 0", ErrDivisionByZero, x)
		}
		return x % y, nil
	default: // **
		if y >= 0 {
			return value.Int(intPow(int64(x), int64(y))), nil
		}
		return value.Float(math.Pow(float64(x), float64(y))), nil
	}
}

func floatArithmetic(op string, x, y float64) (value.Value, error) {
	switch op {
	case "+":
		return value.Float(x + y), nil
	case "-":
		return value.Float(x - y), nil
	case "*":
		return value.Float(x * y), nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("%w: %g / 0", ErrDivisionByZero, x)
		}
		return value.Float(x / y), nil
	case "%":
		if y == 0 {
			return nil, fmt.Errorf("%w: %g %% 0", ErrDivisionByZero, x)
		}
		return value.Float(math.Mod(x, y)), nil
	default: // **
		return value.Float(math.Pow(x, y)), nil
	}
}

func bitwise(op string, x, y value.Value) (value.Value, error) {
	xi, xok := x.(value.Int)
	yi, yok := y.(value.Int)
	if !xok || !yok {
		return nil, typeErr2(op, x, y)
	}
	switch op {
	case "|":
		return xi | yi, nil
	case "^":
		return xi ^ yi, nil
	case "&":
		return xi & yi, nil
	case "<<":
		if yi < 0 {
			return nil, fmt.Errorf("%w: negative shift count",
				ErrBadArgument)
		}
		return xi << yi, nil
	default: // >>
		if yi < 0 {
			return nil, fmt.Errorf("%w: negative shift count",
				ErrBadArgument)
		}
		return xi >> yi, nil
	}
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func typeErr1(op string, x value.Value) error {
	return fmt.Errorf("%w: unsupported operand type for %s: %q",
		ErrTypeMismatch, op, x.Kind())
}

func typeErr2(op string, x, y value.Value) error {
	return fmt.Errorf("%w: unsupported operand types for %s: %q and %q",
		ErrTypeMismatch, op, x.Kind(), y.Kind())
}
