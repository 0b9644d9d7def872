package eval

import (
	"fmt"
	"strconv"

	"github.com/kode4food/colloquy/pkg/value"
)

type parser struct {
	tokens []token
	pos    int
}

// Parse turns an expression source string into an AST. Parsing is separate
// from evaluation so flow elements can hold pre-parsed expressions and
// re-evaluate them each time they execute
func Parse(src string) (Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d",
			ErrSyntax, p.peek().text, p.peek().pos)
	}
	return expr, nil
}

// parseExpr handles the conditional expression, the lowest-precedence form.
// `a if c else b` is right-associative through the else branch
func (p *parser) parseExpr() (Expr, error) {
	then, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("if") {
		return then, nil
	}
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("else") {
		return nil, fmt.Errorf("%w: conditional missing else", ErrSyntax)
	}
	other, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Cond{Then: then, Test: test, Other: other}, nil
}

func (p *parser) parseOr() (Expr, error) {
	return p.parseBinary(p.parseAnd, "or")
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseBinary(p.parseNot, "and")
}

func (p *parser) parseNot() (Expr, error) {
	if p.acceptOp("not") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	return p.parseBinary(p.parseBitOr,
		"==", "!=", "<", ">", "<=", ">=", "in")
}

func (p *parser) parseBitOr() (Expr, error) {
	return p.parseBinary(p.parseBitXor, "|")
}

func (p *parser) parseBitXor() (Expr, error) {
	return p.parseBinary(p.parseBitAnd, "^")
}

func (p *parser) parseBitAnd() (Expr, error) {
	return p.parseBinary(p.parseShift, "&")
}

func (p *parser) parseShift() (Expr, error) {
	return p.parseBinary(p.parseAdditive, "<<", ">>")
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (Expr, error) {
	for _, op := range []string{"-", "~"} {
		if p.acceptOp(op) {
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Unary{Op: op, X: x}, nil
		}
	}
	return p.parsePower()
}

// parsePower binds tighter than unary operators and associates to the right
func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("**") {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: "**", X: base, Y: exp}, nil
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.acceptPunct("."):
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if p.acceptPunct("(") {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				x = &Method{X: x, Name: name, Args: args}
				continue
			}
			x = &Attr{X: x, Name: name}
		case p.acceptPunct("["):
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.acceptPunct("]") {
				return nil, fmt.Errorf("%w: missing ]", ErrSyntax)
			}
			x = &Index{X: x, Key: key}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokInt:
		p.pos++
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer %q", ErrSyntax, tok.text)
		}
		return &Literal{Val: value.Int(n)}, nil
	case tokFloat:
		p.pos++
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad float %q", ErrSyntax, tok.text)
		}
		return &Literal{Val: value.Float(f)}, nil
	case tokString:
		p.pos++
		return &StringLit{Raw: tok.text}, nil
	case tokVar:
		p.pos++
		return &Var{Name: tok.text}, nil
	case tokIdent:
		p.pos++
		if p.acceptPunct("(") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &Call{Fn: tok.text, Args: args}, nil
		}
		return nil, fmt.Errorf("%w: unexpected identifier %q at %d",
			ErrSyntax, tok.text, tok.pos)
	case tokOp:
		switch tok.text {
		case "True":
			p.pos++
			return &Literal{Val: value.Bool(true)}, nil
		case "False":
			p.pos++
			return &Literal{Val: value.Bool(false)}, nil
		case "None":
			p.pos++
			return &Literal{Val: value.Null{}}, nil
		}
	case tokPunct:
		switch tok.text {
		case "(":
			p.pos++
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.acceptPunct(")") {
				return nil, fmt.Errorf("%w: missing )", ErrSyntax)
			}
			return x, nil
		case "[":
			p.pos++
			return p.parseListDisplay()
		case "{":
			p.pos++
			return p.parseBraceDisplay()
		}
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d",
		ErrSyntax, tok.text, tok.pos)
}

func (p *parser) parseListDisplay() (Expr, error) {
	items, err := p.parseItems("]")
	if err != nil {
		return nil, err
	}
	return &ListDisplay{Items: items}, nil
}

// parseBraceDisplay disambiguates {a, b} sets from {k: v} mappings by the
// first separator after the initial item
func (p *parser) parseBraceDisplay() (Expr, error) {
	if p.acceptPunct("}") {
		return &MapDisplay{}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.acceptPunct(":") {
		return p.parseMapDisplay(first)
	}
	items := []Expr{first}
	for p.acceptPunct(",") {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if !p.acceptPunct("}") {
		return nil, fmt.Errorf("%w: missing }", ErrSyntax)
	}
	return &SetDisplay{Items: items}, nil
}

func (p *parser) parseMapDisplay(firstKey Expr) (Expr, error) {
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	entries := []MapItem{{Key: firstKey, Val: val}}
	for p.acceptPunct(",") {
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptPunct(":") {
			return nil, fmt.Errorf("%w: missing : in mapping", ErrSyntax)
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapItem{Key: key, Val: val})
	}
	if !p.acceptPunct("}") {
		return nil, fmt.Errorf("%w: missing }", ErrSyntax)
	}
	return &MapDisplay{Entries: entries}, nil
}

func (p *parser) parseItems(close string) ([]Expr, error) {
	var items []Expr
	if p.acceptPunct(close) {
		return items, nil
	}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.acceptPunct(",") {
			continue
		}
		if p.acceptPunct(close) {
			return items, nil
		}
		return nil, fmt.Errorf("%w: missing %s", ErrSyntax, close)
	}
}

func (p *parser) parseArgs() ([]Expr, error) {
	return p.parseItems(")")
}

func (p *parser) parseBinary(
	next func() (Expr, error), ops ...string,
) (Expr, error) {
	x, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		for _, op := range ops {
			if p.peekOp(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return x, nil
		}
		p.pos++
		y, err := next()
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: matched, X: x, Y: y}
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekOp(op string) bool {
	tok := p.peek()
	return tok.kind == tokOp && tok.text == op
}

func (p *parser) acceptOp(op string) bool {
	if p.peekOp(op) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(text string) bool {
	tok := p.peek()
	if tok.kind == tokPunct && tok.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectIdent() (string, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return "", fmt.Errorf("%w: expected attribute name at %d",
			ErrSyntax, tok.pos)
	}
	p.pos++
	return tok.text, nil
}
