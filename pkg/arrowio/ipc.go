package arrowio

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/ctable"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// WriteStream writes t to w in the Arrow IPC stream format, one record batch
// per chunk-aligned block of rows. It returns the number of batches written.
func WriteStream(ctx context.Context, w io.Writer, t *ctable.Table, mem memory.Allocator) (int, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema, err := Schema(t)
	if err != nil {
		return 0, err
	}
	sw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))

	batches := 0
	for k := 0; k < numBlocks(t); k++ {
		if err := ctx.Err(); err != nil {
			sw.Close()
			return batches, errors.Wrap(err, errors.ErrorTypeCanceled, "stream write canceled").WithDetail("chunk", k)
		}
		rec, err := recordRange(mem, t, k, k+1)
		if err != nil {
			sw.Close()
			return batches, err
		}
		err = sw.Write(rec)
		rec.Release()
		if err != nil {
			sw.Close()
			return batches, errors.Wrap(err, errors.ErrorTypeIO, "failed to write record batch").WithDetail("chunk", k)
		}
		batches++
	}
	if err := sw.Close(); err != nil {
		return batches, errors.Wrap(err, errors.ErrorTypeIO, "failed to close arrow stream")
	}
	return batches, nil
}

// ReadStream reads an Arrow IPC stream into a new table. Batches are
// appended in order; batch boundaries need not match the chunk capacity.
func ReadStream(ctx context.Context, r io.Reader, cfg config.Engine, mem memory.Allocator, opts ...ctable.Option) (*ctable.Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	sr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open arrow stream")
	}
	defer sr.Release()

	fields, err := tableFields(sr.Schema())
	if err != nil {
		return nil, err
	}
	t, err := ctable.New(fields, cfg, opts...)
	if err != nil {
		return nil, err
	}

	for batch := 0; sr.Next(); batch++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCanceled, "stream read canceled").WithDetail("batch", batch)
		}
		if err := appendRecord(t, sr.Record()); err != nil {
			kind := errors.TypeOf(err)
			if kind == "" {
				kind = errors.ErrorTypeIO
			}
			return nil, errors.Wrap(err, kind, "failed to append record batch").WithDetail("batch", batch)
		}
	}
	if err := sr.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read arrow stream")
	}
	return t, nil
}

func tableFields(schema *arrow.Schema) ([]ctable.Field, error) {
	fields := make([]ctable.Field, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		d, err := ElementType(f.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeType, "cannot import column").WithDetail("column", f.Name)
		}
		fields = append(fields, ctable.Field{Name: f.Name, DType: d})
	}
	return fields, nil
}

// appendRecord appends every column of rec to the matching table column.
// All values are decoded before any column grows.
func appendRecord(t *ctable.Table, rec arrow.Record) error {
	data := make([]any, rec.NumCols())
	for i := range data {
		vals, err := values(rec.Column(i))
		if err != nil {
			return err
		}
		data[i] = vals
	}
	for i, vals := range data {
		col, err := t.ColumnAt(i)
		if err != nil {
			return err
		}
		if err := appendDense(col, vals); err != nil {
			return err
		}
	}
	return nil
}

func appendDense(col carray.Column, data any) error {
	switch vals := data.(type) {
	case []bool:
		return appendTyped(col, vals)
	case []int8:
		return appendTyped(col, vals)
	case []int16:
		return appendTyped(col, vals)
	case []int32:
		return appendTyped(col, vals)
	case []int64:
		return appendTyped(col, vals)
	case []uint8:
		return appendTyped(col, vals)
	case []uint16:
		return appendTyped(col, vals)
	case []uint32:
		return appendTyped(col, vals)
	case []uint64:
		return appendTyped(col, vals)
	case []float32:
		return appendTyped(col, vals)
	case []float64:
		return appendTyped(col, vals)
	}
	return errors.Newf(errors.ErrorTypeType, "unsupported block %T", data)
}

func appendTyped[T dtype.Element](col carray.Column, vals []T) error {
	a, ok := col.(*carray.Array[T])
	if !ok {
		return errors.Newf(errors.ErrorTypeType, "cannot append %T to %s column", vals, col.DType())
	}
	return a.AppendSlice(vals)
}
