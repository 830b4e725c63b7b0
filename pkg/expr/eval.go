package expr

import (
	"context"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// block is one dense, aligned slice of values; exactly one field is set
type block struct {
	ints   []int64
	floats []float64
	bools  []bool
}

// Evaluate compiles e against src and runs it
func Evaluate(ctx context.Context, e Expr, src Source, cfg config.Engine, opts ...carray.Option) (*carray.Array[bool], error) {
	p, err := Compile(e, src)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, cfg, opts...)
}

// Run evaluates the program block by block. For each block position the
// referenced columns are decompressed once, the tree is applied elementwise
// and the boolean result is appended to the output, whose chunk capacity is
// the source's. ctx is checked between blocks.
func (p *Program) Run(ctx context.Context, cfg config.Engine, opts ...carray.Option) (*carray.Array[bool], error) {
	capacity := p.src.ChunkCapacity()
	out, err := carray.New[bool](cfg.WithCapacity(capacity), opts...)
	if err != nil {
		return nil, err
	}

	n := p.src.Len()
	for k, base := 0, 0; base < n; k, base = k+1, base+capacity {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "evaluation canceled").
				WithDetail("chunk", k)
		}
		mask, err := p.Block(k, min(capacity, n-base))
		if err != nil {
			return nil, err
		}
		if err := out.AppendSlice(mask); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Block evaluates the program over block k, which must hold size elements
func (p *Program) Block(k, size int) ([]bool, error) {
	env := make([]block, len(p.columns))
	for i, col := range p.columns {
		v, err := col.Vector(k)
		if err != nil {
			return nil, err
		}
		if v.Len() != size {
			return nil, errors.Newf(errors.ErrorTypeLengthMismatch, "column %q block %d has %d elements, want %d",
				p.names[i], k, v.Len(), size)
		}
		env[i], err = load(v)
		if err != nil {
			return nil, err
		}
	}
	return p.root.eval(env, size).bools, nil
}

// load widens a decompressed vector to the evaluator's int64, float64 or
// bool representation. int64, float64 and bool blocks are used in place;
// uint64 goes to the float lane.
func load(v dtype.Vector) (block, error) {
	switch data := v.Data().(type) {
	case []bool:
		return block{bools: data}, nil
	case []int64:
		return block{ints: data}, nil
	case []float64:
		return block{floats: data}, nil
	case []float32:
		return block{floats: widen[float32, float64](data)}, nil
	case []int8:
		return block{ints: widen[int8, int64](data)}, nil
	case []int16:
		return block{ints: widen[int16, int64](data)}, nil
	case []int32:
		return block{ints: widen[int32, int64](data)}, nil
	case []uint8:
		return block{ints: widen[uint8, int64](data)}, nil
	case []uint16:
		return block{ints: widen[uint16, int64](data)}, nil
	case []uint32:
		return block{ints: widen[uint32, int64](data)}, nil
	case []uint64:
		return block{floats: widen[uint64, float64](data)}, nil
	}
	return block{}, errors.Newf(errors.ErrorTypeType, "cannot evaluate over %s values", v.DType())
}

func widen[S, D constraints.Integer | constraints.Float](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}

func fill[T any](n int, v T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (b block) asFloats() []float64 {
	if b.floats != nil || b.ints == nil {
		return b.floats
	}
	return widen[int64, float64](b.ints)
}

func (n *node) eval(env []block, size int) block {
	switch n.leaf {
	case leafColumn:
		return env[n.col]
	case leafInt:
		return block{ints: fill(size, n.i)}
	case leafFloat:
		return block{floats: fill(size, n.f)}
	case leafBool:
		return block{bools: fill(size, n.b)}
	}

	x := n.x.eval(env, size)
	switch n.op {
	case OpNeg:
		if n.kind == kindInt {
			return block{ints: negate(x.ints)}
		}
		return block{floats: negate(x.asFloats())}
	case OpNot:
		out := make([]bool, size)
		for i, v := range x.bools {
			out[i] = !v
		}
		return block{bools: out}
	}

	y := n.y.eval(env, size)
	switch {
	case n.op.isArithmetic():
		if n.kind == kindInt {
			return block{ints: arithInt(n.op, x.ints, y.ints)}
		}
		return block{floats: arithFloat(n.op, x.asFloats(), y.asFloats())}
	case n.op.isComparison():
		switch {
		case n.x.kind == kindBool:
			return block{bools: compareBool(n.op, x.bools, y.bools)}
		case n.x.kind == kindInt && n.y.kind == kindInt:
			return block{bools: compare(n.op, x.ints, y.ints)}
		default:
			return block{bools: compare(n.op, x.asFloats(), y.asFloats())}
		}
	default:
		out := make([]bool, size)
		if n.op == OpAnd {
			for i := range out {
				out[i] = x.bools[i] && y.bools[i]
			}
		} else {
			for i := range out {
				out[i] = x.bools[i] || y.bools[i]
			}
		}
		return block{bools: out}
	}
}

func negate[T constraints.Signed | constraints.Float](x []T) []T {
	out := make([]T, len(x))
	for i, v := range x {
		out[i] = -v
	}
	return out
}

// additive applies the operators shared by integer and float arithmetic
func additive[T constraints.Integer | constraints.Float](op Op, x, y []T) []T {
	out := make([]T, len(x))
	switch op {
	case OpAdd:
		for i := range out {
			out[i] = x[i] + y[i]
		}
	case OpSub:
		for i := range out {
			out[i] = x[i] - y[i]
		}
	case OpMul:
		for i := range out {
			out[i] = x[i] * y[i]
		}
	}
	return out
}

// arithInt wraps on overflow. Modulo takes the sign of the divisor, and a
// zero divisor yields 0.
func arithInt(op Op, x, y []int64) []int64 {
	if op != OpMod {
		return additive(op, x, y)
	}
	out := make([]int64, len(x))
	for i := range out {
		if y[i] == 0 {
			continue
		}
		r := x[i] % y[i]
		if r != 0 && (r < 0) != (y[i] < 0) {
			r += y[i]
		}
		out[i] = r
	}
	return out
}

func arithFloat(op Op, x, y []float64) []float64 {
	switch op {
	case OpDiv:
		out := make([]float64, len(x))
		for i := range out {
			out[i] = x[i] / y[i]
		}
		return out
	case OpPow:
		out := make([]float64, len(x))
		for i := range out {
			out[i] = math.Pow(x[i], y[i])
		}
		return out
	case OpMod:
		out := make([]float64, len(x))
		for i := range out {
			r := math.Mod(x[i], y[i])
			if r != 0 && (r < 0) != (y[i] < 0) {
				r += y[i]
			}
			out[i] = r
		}
		return out
	}
	return additive(op, x, y)
}

func compare[T constraints.Ordered](op Op, x, y []T) []bool {
	out := make([]bool, len(x))
	switch op {
	case OpLt:
		for i := range out {
			out[i] = x[i] < y[i]
		}
	case OpLe:
		for i := range out {
			out[i] = x[i] <= y[i]
		}
	case OpGt:
		for i := range out {
			out[i] = x[i] > y[i]
		}
	case OpGe:
		for i := range out {
			out[i] = x[i] >= y[i]
		}
	case OpEq:
		for i := range out {
			out[i] = x[i] == y[i]
		}
	case OpNe:
		for i := range out {
			out[i] = x[i] != y[i]
		}
	}
	return out
}

func compareBool(op Op, x, y []bool) []bool {
	out := make([]bool, len(x))
	for i := range out {
		out[i] = (x[i] == y[i]) == (op == OpEq)
	}
	return out
}
