// Package expr parses and evaluates the restricted expression language used
// to derive boolean masks from table columns.
//
// The grammar, loosest binding first:
//
//	or      := and (("|" | "or") and)*
//	and     := not (("&" | "and") not)*
//	not     := ("~" | "not") not | compare
//	compare := sum (("<" | "<=" | ">" | ">=" | "==" | "!=") sum)?
//	sum     := term (("+" | "-") term)*
//	term    := unary (("*" | "/" | "%") unary)*
//	unary   := "-" unary | power
//	power   := primary ("**" unary)?
//	primary := number | "True" | "False" | column | "(" or ")"
//
// Comparisons do not chain, and boolean operators bind looser than
// comparisons, so "x < 3 & y > 1" needs no parentheses.
//
// Integer operands stay int64 under + - * and %. Division and ** always
// produce float64. Integer % 0 yields 0, and float arithmetic follows
// IEEE-754, so x / 0 is +Inf, -Inf or NaN rather than an error.
//
// Every integer column is read as int64 except uint64, which is read as
// float64 like a uint64/int64 mix in NumPy. float32 columns are read as
// float64; a float literal whose other operand is a float32 column is first
// rounded to float32, so "f == 0.1" matches elements that store 0.1.
package expr

import (
	"strconv"
	"strings"
)

// Op is an operator of the expression language
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpNeg
	OpNot
)

var opSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpPow: "**",
	OpMod: "%",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpEq:  "==",
	OpNe:  "!=",
	OpAnd: "&",
	OpOr:  "|",
	OpNeg: "-",
	OpNot: "~",
}

func (o Op) String() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

func (o Op) isArithmetic() bool { return o <= OpMod }
func (o Op) isComparison() bool { return o >= OpLt && o <= OpNe }
func (o Op) isLogical() bool    { return o == OpAnd || o == OpOr }

// Expr is a node of a parsed expression
type Expr interface {
	// String prints the expression fully parenthesized; parsing the result
	// yields an equal tree
	String() string
	expr()
}

// Column references a table column by name
type Column struct {
	Name string
}

// IntLit is an integer literal
type IntLit struct {
	Value int64
}

// FloatLit is a floating point literal
type FloatLit struct {
	Value float64
}

// BoolLit is True or False
type BoolLit struct {
	Value bool
}

// Unary is negation or logical not
type Unary struct {
	Op Op
	X  Expr
}

// Binary is an arithmetic, comparison or logical operation
type Binary struct {
	Op   Op
	X, Y Expr
}

func (*Column) expr()   {}
func (*IntLit) expr()   {}
func (*FloatLit) expr() {}
func (*BoolLit) expr()  {}
func (*Unary) expr()    {}
func (*Binary) expr()   {}

func (c *Column) String() string { return c.Name }
func (l *IntLit) String() string { return strconv.FormatInt(l.Value, 10) }

func (l *FloatLit) String() string {
	s := strconv.FormatFloat(l.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func (l *BoolLit) String() string {
	if l.Value {
		return "True"
	}
	return "False"
}

func (u *Unary) String() string {
	return "(" + u.Op.String() + u.X.String() + ")"
}

func (b *Binary) String() string {
	return "(" + b.X.String() + " " + b.Op.String() + " " + b.Y.String() + ")"
}

// Columns returns the distinct column names referenced by e in order of
// first appearance
func Columns(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *Column:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Unary:
			walk(n.X)
		case *Binary:
			walk(n.X)
			walk(n.Y)
		}
	}
	walk(e)
	return names
}
