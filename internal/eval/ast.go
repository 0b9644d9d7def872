package eval

import "github.com/kode4food/colloquy/pkg/value"

type (
	// Expr is a parsed expression node
	Expr interface {
		exprNode()
	}

	// Literal is a constant value (numbers, booleans, None)
	Literal struct {
		Val value.Value
	}

	// StringLit is a string literal; interpolation of embedded {expr}
	// segments happens at evaluation time, never at parse time
	StringLit struct {
		Raw string
	}

	// Var is a $name variable reference
	Var struct {
		Name string
	}

	// ListDisplay is a [a, b, ...] literal
	ListDisplay struct {
		Items []Expr
	}

	// SetDisplay is a {a, b, ...} literal
	SetDisplay struct {
		Items []Expr
	}

	// MapDisplay is a {k: v, ...} literal
	MapDisplay struct {
		Entries []MapItem
	}

	// MapItem is one key/value pair of a MapDisplay
	MapItem struct {
		Key Expr
		Val Expr
	}

	// Unary is a prefix operator application
	Unary struct {
		Op string
		X  Expr
	}

	// Binary is an infix operator application
	Binary struct {
		Op   string
		X, Y Expr
	}

	// Cond is the conditional expression `then if test else other`
	Cond struct {
		Then  Expr
		Test  Expr
		Other Expr
	}

	// Attr is dotted attribute access
	Attr struct {
		X    Expr
		Name string
	}

	// Index is subscript access
	Index struct {
		X   Expr
		Key Expr
	}

	// Call is a builtin function invocation
	Call struct {
		Fn   string
		Args []Expr
	}

	// Method is a method invocation on a container value
	Method struct {
		X    Expr
		Name string
		Args []Expr
	}
)

func (*Literal) exprNode()     {}
func (*StringLit) exprNode()   {}
func (*Var) exprNode()         {}
func (*ListDisplay) exprNode() {}
func (*SetDisplay) exprNode()  {}
func (*MapDisplay) exprNode()  {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Cond) exprNode()        {}
func (*Attr) exprNode()        {}
func (*Index) exprNode()       {}
func (*Call) exprNode()        {}
func (*Method) exprNode()      {}
