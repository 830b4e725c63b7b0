// Package arrowio converts compressed arrays and tables to and from Apache
// Arrow arrays, records and IPC streams.
//
// Export walks a column block by block, so only one decompressed chunk per
// column is alive while the Arrow buffer is built. Arrow arrays with nulls
// cannot be imported: compressed columns have no validity bitmap.
package arrowio

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/ctable"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// DataType maps an element type to its Arrow type
func DataType(d dtype.DType) (arrow.DataType, error) {
	switch d {
	case dtype.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case dtype.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case dtype.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case dtype.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case dtype.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case dtype.Uint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case dtype.Uint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case dtype.Uint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case dtype.Uint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case dtype.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case dtype.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	}
	return nil, errors.Newf(errors.ErrorTypeType, "no arrow type for %s", d)
}

// ElementType maps an Arrow type back to an element type
func ElementType(dt arrow.DataType) (dtype.DType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return dtype.Bool, nil
	case arrow.INT8:
		return dtype.Int8, nil
	case arrow.INT16:
		return dtype.Int16, nil
	case arrow.INT32:
		return dtype.Int32, nil
	case arrow.INT64:
		return dtype.Int64, nil
	case arrow.UINT8:
		return dtype.Uint8, nil
	case arrow.UINT16:
		return dtype.Uint16, nil
	case arrow.UINT32:
		return dtype.Uint32, nil
	case arrow.UINT64:
		return dtype.Uint64, nil
	case arrow.FLOAT32:
		return dtype.Float32, nil
	case arrow.FLOAT64:
		return dtype.Float64, nil
	}
	return dtype.Invalid, errors.Newf(errors.ErrorTypeType, "unsupported arrow type %s", dt)
}

// Schema returns the Arrow schema of a table. Fields are not nullable.
func Schema(t *ctable.Table) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, t.NumColumns())
	for _, f := range t.Schema() {
		dt, err := DataType(f.DType)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeType, "cannot export column").WithDetail("column", f.Name)
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt})
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToArrow copies a column into a new Arrow array. The caller owns the result
// and must Release it.
func ToArrow(mem memory.Allocator, col carray.Column) (arrow.Array, error) {
	return blockRange(mem, col, 0, col.NumBlocks())
}

// blockRange exports blocks [from, to) of col
func blockRange(mem memory.Allocator, col carray.Column, from, to int) (arrow.Array, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	dt, err := DataType(col.DType())
	if err != nil {
		return nil, err
	}
	b := array.NewBuilder(mem, dt)
	defer b.Release()

	for k := from; k < to; k++ {
		v, err := col.Vector(k)
		if err != nil {
			return nil, err
		}
		if err := appendBlock(b, v.Data()); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

func appendBlock(b array.Builder, data any) error {
	switch vals := data.(type) {
	case []bool:
		return appendValues(b, vals)
	case []int8:
		return appendValues(b, vals)
	case []int16:
		return appendValues(b, vals)
	case []int32:
		return appendValues(b, vals)
	case []int64:
		return appendValues(b, vals)
	case []uint8:
		return appendValues(b, vals)
	case []uint16:
		return appendValues(b, vals)
	case []uint32:
		return appendValues(b, vals)
	case []uint64:
		return appendValues(b, vals)
	case []float32:
		return appendValues(b, vals)
	case []float64:
		return appendValues(b, vals)
	}
	return errors.Newf(errors.ErrorTypeType, "unsupported block %T", data)
}

func appendValues[T dtype.Element](b array.Builder, vals []T) error {
	vb, ok := b.(interface{ AppendValues([]T, []bool) })
	if !ok {
		return errors.Newf(errors.ErrorTypeInternal, "builder %T does not accept %T", b, vals)
	}
	vb.AppendValues(vals, nil)
	return nil
}

// FromArrow compresses an Arrow array into a new column
func FromArrow(ctx context.Context, arr arrow.Array, cfg config.Engine, opts ...carray.Option) (carray.Column, error) {
	data, err := values(arr)
	if err != nil {
		return nil, err
	}
	return carray.ColumnFromDense(ctx, data, cfg, opts...)
}

// values returns the elements of arr as a typed slice. Numeric slices alias
// the Arrow buffer; booleans are unpacked into a fresh slice.
func values(arr arrow.Array) (any, error) {
	if arr.NullN() > 0 {
		return nil, errors.Newf(errors.ErrorTypeType, "arrow array has %d nulls", arr.NullN())
	}
	switch a := arr.(type) {
	case *array.Boolean:
		out := make([]bool, a.Len())
		for i := range out {
			out[i] = a.Value(i)
		}
		return out, nil
	case *array.Int8:
		return a.Int8Values(), nil
	case *array.Int16:
		return a.Int16Values(), nil
	case *array.Int32:
		return a.Int32Values(), nil
	case *array.Int64:
		return a.Int64Values(), nil
	case *array.Uint8:
		return a.Uint8Values(), nil
	case *array.Uint16:
		return a.Uint16Values(), nil
	case *array.Uint32:
		return a.Uint32Values(), nil
	case *array.Uint64:
		return a.Uint64Values(), nil
	case *array.Float32:
		return a.Float32Values(), nil
	case *array.Float64:
		return a.Float64Values(), nil
	}
	return nil, errors.Newf(errors.ErrorTypeType, "unsupported arrow type %s", arr.DataType())
}

// ToRecord copies a table into one Arrow record. The caller must Release it.
func ToRecord(mem memory.Allocator, t *ctable.Table) (arrow.Record, error) {
	return recordRange(mem, t, 0, numBlocks(t))
}

func numBlocks(t *ctable.Table) int {
	return (t.Len() + t.ChunkCapacity() - 1) / t.ChunkCapacity()
}

// recordRange exports blocks [from, to) of every column as one record
func recordRange(mem memory.Allocator, t *ctable.Table, from, to int) (arrow.Record, error) {
	schema, err := Schema(t)
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, 0, t.NumColumns())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rows := int64(-1)
	for i := 0; i < t.NumColumns(); i++ {
		col, err := t.ColumnAt(i)
		if err != nil {
			return nil, err
		}
		arr, err := blockRange(mem, col, from, to)
		if err != nil {
			return nil, err
		}
		cols = append(cols, arr)
		rows = int64(arr.Len())
	}
	return array.NewRecord(schema, cols, rows), nil
}

// FromRecord compresses every column of rec into a new table
func FromRecord(ctx context.Context, rec arrow.Record, cfg config.Engine, opts ...ctable.Option) (*ctable.Table, error) {
	names := make([]string, rec.NumCols())
	data := make([]any, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		vals, err := values(rec.Column(i))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeType, "cannot import column").WithDetail("column", f.Name)
		}
		names[i] = f.Name
		data[i] = vals
	}
	return ctable.FromDense(ctx, names, data, cfg, opts...)
}
