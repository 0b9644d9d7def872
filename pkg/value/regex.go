package value

import "regexp"

// Regex is a compiled pattern produced by the regex() builtin. Handles are
// shared on assignment like references; patterns are immutable once compiled
type Regex struct {
	Source  string
	Pattern *regexp.Regexp
}

func (*Regex) Kind() Kind { return KindRegex }

// CompileRegex compiles a pattern into a Regex value
func CompileRegex(source string) (*Regex, error) {
	pattern, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	return &Regex{Source: source, Pattern: pattern}, nil
}

// Matches reports whether the pattern finds a match in the string
func (r *Regex) Matches(s string) bool {
	return r.Pattern.FindStringIndex(s) != nil
}
