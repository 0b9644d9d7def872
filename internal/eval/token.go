package eval

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

type (
	tokenKind uint8

	token struct {
		kind tokenKind
		text string
		pos  int
	}

	lexer struct {
		src    string
		pos    int
		tokens []token
	}
)

const (
	tokEOF tokenKind = iota
	tokInt
	tokFloat
	tokString
	tokIdent
	tokVar
	tokOp
	tokPunct
)

// ErrSyntax is returned for expressions that cannot be parsed
var ErrSyntax = errors.New("syntax error")

var operators = []string{
	"**", "==", "!=", "<=", ">=", "<<", ">>",
	"+", "-", "*", "/", "%", "<", ">", "|", "^", "&", "~",
}

var keywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "if": {}, "else": {},
	"True": {}, "False": {}, "None": {},
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.src) {
			lx.emit(tokEOF, "")
			return lx.tokens, nil
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
}

func (lx *lexer) next() error {
	ch := lx.src[lx.pos]
	switch {
	case ch == '$':
		return lx.lexVar()
	case ch == '"' || ch == '\'':
		return lx.lexString(ch)
	case ch >= '0' && ch <= '9':
		return lx.lexNumber()
	case isIdentStart(rune(ch)):
		lx.lexIdent()
		return nil
	case strings.ContainsRune("()[]{},:.", rune(ch)):
		lx.emit(tokPunct, string(ch))
		lx.pos++
		return nil
	default:
		for _, op := range operators {
			if strings.HasPrefix(lx.src[lx.pos:], op) {
				lx.emit(tokOp, op)
				lx.pos += len(op)
				return nil
			}
		}
		return fmt.Errorf("%w: unexpected character %q at %d",
			ErrSyntax, ch, lx.pos)
	}
}

func (lx *lexer) lexVar() error {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) && isIdentPart(rune(lx.src[lx.pos])) {
		lx.pos++
	}
	if lx.pos == start+1 {
		return fmt.Errorf("%w: empty variable name at %d", ErrSyntax, start)
	}
	lx.emitAt(tokVar, lx.src[start+1:lx.pos], start)
	return nil
}

func (lx *lexer) lexString(quote byte) error {
	start := lx.pos
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.src) {
		ch := lx.src[lx.pos]
		if ch == '\\' && lx.pos+1 < len(lx.src) {
			b.WriteByte(unescape(lx.src[lx.pos+1]))
			lx.pos += 2
			continue
		}
		if ch == quote {
			lx.pos++
			lx.emitAt(tokString, b.String(), start)
			return nil
		}
		b.WriteByte(ch)
		lx.pos++
	}
	return fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}

func (lx *lexer) lexNumber() error {
	start := lx.pos
	kind := tokInt
	for lx.pos < len(lx.src) && lx.src[lx.pos] >= '0' &&
		lx.src[lx.pos] <= '9' {
		lx.pos++
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' &&
		lx.pos+1 < len(lx.src) &&
		lx.src[lx.pos+1] >= '0' && lx.src[lx.pos+1] <= '9' {
		kind = tokFloat
		lx.pos++
		for lx.pos < len(lx.src) && lx.src[lx.pos] >= '0' &&
			lx.src[lx.pos] <= '9' {
			lx.pos++
		}
	}
	lx.emitAt(kind, lx.src[start:lx.pos], start)
	return nil
}

func (lx *lexer) lexIdent() {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(rune(lx.src[lx.pos])) {
		lx.pos++
	}
	text := lx.src[start:lx.pos]
	if _, ok := keywords[text]; ok {
		lx.emitAt(tokOp, text, start)
		return
	}
	lx.emitAt(tokIdent, text, start)
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) &&
		unicode.IsSpace(rune(lx.src[lx.pos])) {
		lx.pos++
	}
}

func (lx *lexer) emit(kind tokenKind, text string) {
	lx.emitAt(kind, text, lx.pos)
}

func (lx *lexer) emitAt(kind tokenKind, text string, pos int) {
	lx.tokens = append(lx.tokens, token{kind: kind, text: text, pos: pos})
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return ch
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
