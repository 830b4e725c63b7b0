package carray

import (
	"context"

	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// Column is the element-type-erased view of an Array used by tables and the
// expression evaluator. Every *Array[T] implements it.
type Column interface {
	DType() dtype.DType
	Len() int
	ChunkCapacity() int
	NumBlocks() int
	// Vector returns block k decompressed
	Vector(k int) (dtype.Vector, error)
	Value(i int) (any, error)
	AppendValue(v any) error
	// DenseData decompresses the whole column into its []T
	DenseData() (any, error)
	Freeze()
	Frozen() bool
	Stats() Stats
	Config() config.Engine
	CloneColumn() Column
}

var (
	_ Column = (*Array[int64])(nil)
	_ Column = (*Array[bool])(nil)
	_ Mask   = (*Array[bool])(nil)
	_ Mask   = DenseMask(nil)
)

// NewColumn creates an empty array of element type d
func NewColumn(d dtype.DType, cfg config.Engine, opts ...Option) (Column, error) {
	switch d {
	case dtype.Bool:
		return asColumn[bool](New[bool](cfg, opts...))
	case dtype.Int8:
		return asColumn[int8](New[int8](cfg, opts...))
	case dtype.Int16:
		return asColumn[int16](New[int16](cfg, opts...))
	case dtype.Int32:
		return asColumn[int32](New[int32](cfg, opts...))
	case dtype.Int64:
		return asColumn[int64](New[int64](cfg, opts...))
	case dtype.Uint8:
		return asColumn[uint8](New[uint8](cfg, opts...))
	case dtype.Uint16:
		return asColumn[uint16](New[uint16](cfg, opts...))
	case dtype.Uint32:
		return asColumn[uint32](New[uint32](cfg, opts...))
	case dtype.Uint64:
		return asColumn[uint64](New[uint64](cfg, opts...))
	case dtype.Float32:
		return asColumn[float32](New[float32](cfg, opts...))
	case dtype.Float64:
		return asColumn[float64](New[float64](cfg, opts...))
	default:
		return nil, errors.Newf(errors.ErrorTypeType, "unsupported element type %s", d)
	}
}

// ColumnFromDense builds a column from a typed slice such as []int64
func ColumnFromDense(ctx context.Context, data any, cfg config.Engine, opts ...Option) (Column, error) {
	switch v := data.(type) {
	case []bool:
		return asColumn[bool](FromDense(ctx, v, cfg, opts...))
	case []int8:
		return asColumn[int8](FromDense(ctx, v, cfg, opts...))
	case []int16:
		return asColumn[int16](FromDense(ctx, v, cfg, opts...))
	case []int32:
		return asColumn[int32](FromDense(ctx, v, cfg, opts...))
	case []int64:
		return asColumn[int64](FromDense(ctx, v, cfg, opts...))
	case []uint8:
		return asColumn[uint8](FromDense(ctx, v, cfg, opts...))
	case []uint16:
		return asColumn[uint16](FromDense(ctx, v, cfg, opts...))
	case []uint32:
		return asColumn[uint32](FromDense(ctx, v, cfg, opts...))
	case []uint64:
		return asColumn[uint64](FromDense(ctx, v, cfg, opts...))
	case []float32:
		return asColumn[float32](FromDense(ctx, v, cfg, opts...))
	case []float64:
		return asColumn[float64](FromDense(ctx, v, cfg, opts...))
	default:
		return nil, errors.Newf(errors.ErrorTypeType, "unsupported dense buffer %T", data)
	}
}

func asColumn[T dtype.Element](a *Array[T], err error) (Column, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Arange returns the int64 array 0, 1, ..., n-1
func Arange(ctx context.Context, n int, cfg config.Engine, opts ...Option) (*Array[int64], error) {
	buf := make([]int64, n)
	for i := range buf {
		buf[i] = int64(i)
	}
	return FromDense(ctx, buf, cfg, opts...)
}
