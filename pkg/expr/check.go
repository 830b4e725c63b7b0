package expr

import (
	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// Source resolves the column names an expression references. Every column
// it returns must have Len elements in blocks of ChunkCapacity.
type Source interface {
	Lookup(name string) (carray.Column, bool)
	Len() int
	ChunkCapacity() int
}

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindInt:
		return "integer"
	case kindFloat:
		return "float"
	default:
		return "boolean"
	}
}

func kindOf(d dtype.DType) kind {
	switch {
	case d == dtype.Bool:
		return kindBool
	case d.IsFloat(), d == dtype.Uint64:
		// uint64 does not fit int64
		return kindFloat
	default:
		return kindInt
	}
}

type leaf int

const (
	leafNone leaf = iota
	leafColumn
	leafInt
	leafFloat
	leafBool
)

// node is a type-checked expression node
type node struct {
	op   Op
	leaf leaf
	kind kind
	col  int
	i    int64
	f    float64
	b    bool
	x, y *node
}

// Program is an expression bound to the columns of a Source and checked
// for type errors
type Program struct {
	expr    Expr
	root    *node
	src     Source
	names   []string
	columns []carray.Column
}

// Compile resolves the columns referenced by e against src and type checks
// the tree. Unknown names fail with ErrorTypeUnknownColumn; bool operands in
// arithmetic or ordering comparisons, and a non-boolean result, fail with
// ErrorTypeType. No chunk is read.
func Compile(e Expr, src Source) (*Program, error) {
	p := &Program{expr: e, src: src}
	index := make(map[string]int)
	for _, name := range Columns(e) {
		col, ok := src.Lookup(name)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeUnknownColumn, "unknown column %q", name).
				WithDetail("column", name)
		}
		if col.Len() != src.Len() {
			return nil, errors.Newf(errors.ErrorTypeLengthMismatch, "column %q has %d elements, want %d", name, col.Len(), src.Len())
		}
		if col.ChunkCapacity() != src.ChunkCapacity() {
			return nil, errors.Newf(errors.ErrorTypeLengthMismatch, "column %q has chunk capacity %d, want %d",
				name, col.ChunkCapacity(), src.ChunkCapacity())
		}
		index[name] = len(p.columns)
		p.names = append(p.names, name)
		p.columns = append(p.columns, col)
	}

	root, err := p.check(e, index)
	if err != nil {
		return nil, err
	}
	if root.kind != kindBool {
		return nil, errors.Newf(errors.ErrorTypeType, "expression %s produces %s values, not booleans", e, root.kind)
	}
	p.root = root
	return p, nil
}

// Columns returns the referenced column names in order of first appearance
func (p *Program) Columns() []string { return p.names }

func (p *Program) check(e Expr, index map[string]int) (*node, error) {
	switch n := e.(type) {
	case *Column:
		i := index[n.Name]
		return &node{leaf: leafColumn, col: i, kind: kindOf(p.columns[i].DType())}, nil
	case *IntLit:
		return &node{leaf: leafInt, kind: kindInt, i: n.Value}, nil
	case *FloatLit:
		return &node{leaf: leafFloat, kind: kindFloat, f: n.Value}, nil
	case *BoolLit:
		return &node{leaf: leafBool, kind: kindBool, b: n.Value}, nil
	case *Unary:
		x, err := p.check(n.X, index)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case OpNeg:
			if x.kind == kindBool {
				return nil, typeError(n, "cannot negate a boolean")
			}
			return &node{op: OpNeg, kind: x.kind, x: x}, nil
		case OpNot:
			if x.kind != kindBool {
				return nil, typeError(n, "logical not needs a boolean operand, got %s", x.kind)
			}
			return &node{op: OpNot, kind: kindBool, x: x}, nil
		}
		return nil, typeError(n, "unknown unary operator %s", n.Op)
	case *Binary:
		x, err := p.check(n.X, index)
		if err != nil {
			return nil, err
		}
		y, err := p.check(n.Y, index)
		if err != nil {
			return nil, err
		}
		p.matchPrecision(x, y)
		p.matchPrecision(y, x)
		out := &node{op: n.Op, x: x, y: y}
		switch {
		case n.Op.isArithmetic():
			if x.kind == kindBool || y.kind == kindBool {
				return nil, typeError(n, "operator %s needs numeric operands", n.Op)
			}
			out.kind = kindFloat
			if x.kind == kindInt && y.kind == kindInt && n.Op != OpDiv && n.Op != OpPow {
				out.kind = kindInt
			}
		case n.Op == OpEq || n.Op == OpNe:
			if (x.kind == kindBool) != (y.kind == kindBool) {
				return nil, typeError(n, "cannot compare %s with %s", x.kind, y.kind)
			}
			out.kind = kindBool
		case n.Op.isComparison():
			if x.kind == kindBool || y.kind == kindBool {
				return nil, typeError(n, "operator %s needs numeric operands", n.Op)
			}
			out.kind = kindBool
		case n.Op.isLogical():
			if x.kind != kindBool || y.kind != kindBool {
				return nil, typeError(n, "operator %s needs boolean operands", n.Op)
			}
			out.kind = kindBool
		default:
			return nil, typeError(n, "unknown binary operator %s", n.Op)
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrorTypeInternal, "unexpected expression node %T", e)
}

// matchPrecision rounds a float literal to float32 when its other operand is
// a float32 column, so "f == 0.1" compares against the stored value
func (p *Program) matchPrecision(lit, other *node) {
	if lit.leaf != leafFloat || other.leaf != leafColumn {
		return
	}
	if p.columns[other.col].DType() == dtype.Float32 {
		lit.f = float64(float32(lit.f))
	}
}

func typeError(e Expr, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrorTypeType, format, args...).WithDetail("expression", e.String())
}
