package eval

import (
	"fmt"
	"strings"

	"github.com/kode4food/colloquy/pkg/value"
)

// Interpolate substitutes {expr} segments in a string with the str() form of
// each evaluated expression. Doubled braces decode to literal braces without
// evaluation. Scanning runs left to right over non-overlapping segments and
// happens every time the containing statement executes
func Interpolate(s string, scope Scope, env Env) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case ch == '{':
			end, err := findCloseBrace(s, i+1)
			if err != nil {
				return "", err
			}
			val, err := EvalString(s[i+1:end], scope, env)
			if err != nil {
				return "", err
			}
			b.WriteString(value.Str(val))
			i = end + 1
		case ch == '}':
			return "", fmt.Errorf("%w: unmatched } in %q", ErrSyntax, s)
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String(), nil
}

// findCloseBrace locates the brace ending an interpolated expression,
// tracking nesting and skipping quoted sections of the inner expression
func findCloseBrace(s string, start int) (int, error) {
	depth := 1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			end := skipQuoted(s, i)
			if end < 0 {
				return 0, fmt.Errorf(
					"%w: unterminated string in %q", ErrSyntax, s)
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unmatched { in %q", ErrSyntax, s)
}

func skipQuoted(s string, start int) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == quote {
			return i
		}
	}
	return -1
}
