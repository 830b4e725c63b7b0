package arrowio

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/ctable"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

func engine(capacity int) config.Engine {
	return config.DefaultEngine().WithCapacity(capacity)
}

func sampleTable(t *testing.T, n, capacity int) *ctable.Table {
	t.Helper()
	ids := make([]int64, n)
	scores := make([]float32, n)
	flags := make([]bool, n)
	for i := range ids {
		ids[i] = int64(i * 3)
		scores[i] = float32(i) / 4
		flags[i] = i%3 == 0
	}
	tbl, err := ctable.FromDense(context.Background(), []string{"id", "score", "flag"},
		[]any{ids, scores, flags}, engine(capacity))
	require.NoError(t, err)
	return tbl
}

func TestTypeMapping(t *testing.T) {
	for _, d := range []dtype.DType{dtype.Bool, dtype.Int8, dtype.Int16, dtype.Int32, dtype.Int64,
		dtype.Uint8, dtype.Uint16, dtype.Uint32, dtype.Uint64, dtype.Float32, dtype.Float64} {
		dt, err := DataType(d)
		require.NoError(t, err)
		back, err := ElementType(dt)
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}

	_, err := ElementType(arrow.BinaryTypes.String)
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
}

func TestArrayRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ctx := context.Background()
	src := make([]uint16, 1000)
	for i := range src {
		src[i] = uint16(i * 7)
	}
	col, err := carray.ColumnFromDense(ctx, src, engine(128))
	require.NoError(t, err)

	arr, err := ToArrow(mem, col)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, 1000, arr.Len())
	assert.Equal(t, src, arr.(*array.Uint16).Uint16Values())

	back, err := FromArrow(ctx, arr, engine(64))
	require.NoError(t, err)
	assert.Equal(t, 64, back.ChunkCapacity())
	data, err := back.DenseData()
	require.NoError(t, err)
	assert.Equal(t, src, data)
}

func TestFromArrowRejectsNulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.Append(1)
	b.AppendNull()
	arr := b.NewArray()
	defer arr.Release()

	_, err := FromArrow(context.Background(), arr, engine(4))
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
}

func TestRecordRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := sampleTable(t, 100, 16)
	rec, err := ToRecord(mem, tbl)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(100), rec.NumRows())
	assert.Equal(t, int64(3), rec.NumCols())
	assert.Equal(t, "score", rec.Schema().Field(1).Name)

	back, err := FromRecord(context.Background(), rec, engine(16))
	require.NoError(t, err)
	want, err := tbl.Dense()
	require.NoError(t, err)
	got, err := back.Dense()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStreamRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	ctx := context.Background()

	tbl := sampleTable(t, 250, 64)
	var buf bytes.Buffer
	batches, err := WriteStream(ctx, &buf, tbl, mem)
	require.NoError(t, err)
	assert.Equal(t, 4, batches)

	// a different chunk capacity on the way back in
	back, err := ReadStream(ctx, &buf, engine(100), mem)
	require.NoError(t, err)
	assert.Equal(t, 250, back.Len())
	assert.Equal(t, 100, back.ChunkCapacity())
	assert.Equal(t, tbl.Schema(), back.Schema())

	want, err := tbl.Dense()
	require.NoError(t, err)
	got, err := back.Dense()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mask, err := back.Evaluate(ctx, "flag and id > 600")
	require.NoError(t, err)
	n, err := carray.CountTrue(mask)
	require.NoError(t, err)
	// ids 603..747 step 9
	assert.Equal(t, 17, n)
}

func TestWriteStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	_, err := WriteStream(ctx, &buf, sampleTable(t, 10, 4), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCanceled))
}

func TestReadStreamGarbage(t *testing.T) {
	_, err := ReadStream(context.Background(), bytes.NewReader([]byte("not arrow")), engine(4), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}
