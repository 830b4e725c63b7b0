package carray

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

func testEngine(capacity int) config.Engine {
	cfg := config.DefaultEngine().WithCapacity(capacity)
	cfg.Workers = 3
	return cfg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := testEngine(0)
	_, err := New[int64](cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestAppendLifecycle(t *testing.T) {
	a, err := New[int64](testEngine(4))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, a.NumBlocks())
	assert.Equal(t, dtype.Int64, a.DType())

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Append(int64(i)))
	}
	// partial tail
	assert.Equal(t, 0, a.NumChunks())
	assert.Equal(t, 1, a.NumBlocks())

	require.NoError(t, a.Append(3))
	// capacity reached: sealed chunk plus empty tail
	assert.Equal(t, 1, a.NumChunks())
	assert.Equal(t, 1, a.NumBlocks())
	assert.Equal(t, 4, a.Len())

	require.NoError(t, a.Append(4))
	assert.Equal(t, 2, a.NumBlocks())

	for i := 0; i < a.Len(); i++ {
		v, err := a.Get(i)
		require.NoError(t, err)
		assert.Equal(t, int64(i), v)
	}

	s := a.Stats()
	assert.Equal(t, 5, s.Len)
	assert.Equal(t, 1, s.Chunks)
	assert.Equal(t, 1, s.TailLen)
	assert.Equal(t, int64(32), s.RawBytes)
	assert.Equal(t, int64(8), s.TailBytes)
	assert.Greater(t, s.Ratio, 0.0)
}

func TestGetOutOfRange(t *testing.T) {
	a, err := FromDense(context.Background(), []int32{1, 2, 3}, testEngine(2))
	require.NoError(t, err)

	for _, i := range []int{-1, 3, 100} {
		_, err := a.Get(i)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeIndex), "index %d", i)
	}

	_, err = a.Chunk(2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))
	_, err = a.SealedChunk(1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))
}

func TestAppendSlice(t *testing.T) {
	a, err := New[float32](testEngine(3))
	require.NoError(t, err)
	require.NoError(t, a.AppendSlice([]float32{1, 2}))
	require.NoError(t, a.AppendSlice([]float32{3, 4, 5, 6, 7}))
	require.NoError(t, a.AppendSlice(nil))

	assert.Equal(t, 7, a.Len())
	assert.Equal(t, 2, a.NumChunks())
	dense, err := a.ToDense()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7}, dense)
}

func TestFreeze(t *testing.T) {
	a, err := New[uint8](testEngine(2))
	require.NoError(t, err)
	require.NoError(t, a.Append(1))
	a.Freeze()
	assert.True(t, a.Frozen())

	err = a.Append(2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))
	err = a.AppendSlice([]uint8{2})
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))

	v, err := a.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
}

func TestSingleSlotCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := FromDense(context.Background(), []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, testEngine(4),
		WithMetrics(metrics.New(reg)))
	require.NoError(t, err)

	_, err = a.Get(1)
	require.NoError(t, err)
	_, err = a.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, a.CachedChunks())

	_, err = a.Get(5)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, a.CachedChunks())

	// tail reads never touch the cache
	_, err = a.Get(9)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, a.CachedChunks())

	assert.Equal(t, 1.0, counterValue(t, reg, "carray_cache_hits_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "carray_cache_misses_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "carray_chunks_decompressed_total"))
}

func TestMultiSlotCache(t *testing.T) {
	cfg := testEngine(4)
	cfg.CacheChunks = 2
	a, err := FromDense(context.Background(), make([]int16, 12), cfg)
	require.NoError(t, err)

	for _, i := range []int{0, 5, 1} {
		_, err := a.Get(i)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 0}, a.CachedChunks())

	_, err = a.Get(9)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, a.CachedChunks())
}

func TestAppendKeepsCachedChunk(t *testing.T) {
	a, err := New[int64](testEngine(2))
	require.NoError(t, err)
	require.NoError(t, a.AppendSlice([]int64{1, 2, 3}))

	_, err = a.Get(0)
	require.NoError(t, err)
	require.NoError(t, a.Append(4))
	assert.Equal(t, []int{0}, a.CachedChunks())

	v, err := a.Get(3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestTailBlockStaysValidAfterSeal(t *testing.T) {
	a, err := New[int64](testEngine(3))
	require.NoError(t, err)
	require.NoError(t, a.AppendSlice([]int64{1, 2}))

	tail, err := a.Chunk(0)
	require.NoError(t, err)
	require.NoError(t, a.AppendSlice([]int64{3, 4}))
	assert.Equal(t, []int64{1, 2}, tail)
}

func TestClone(t *testing.T) {
	a, err := FromDense(context.Background(), []int64{1, 2, 3, 4, 5}, testEngine(2))
	require.NoError(t, err)
	c := a.Clone()

	_, err = c.Get(0)
	require.NoError(t, err)
	assert.Empty(t, a.CachedChunks())
	assert.Equal(t, []int{0}, c.CachedChunks())

	require.NoError(t, c.Append(6))
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, 6, c.Len())

	dense, err := a.ToDense()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, dense)

	col := a.CloneColumn()
	assert.Equal(t, 5, col.Len())
}

func TestValueAndAppendValue(t *testing.T) {
	a, err := New[float64](testEngine(4))
	require.NoError(t, err)
	require.NoError(t, a.AppendValue(3))
	require.NoError(t, a.AppendValue(int64(-2)))
	require.NoError(t, a.AppendValue(float32(0.5)))

	err = a.AppendValue("4")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))

	v, err := a.Value(1)
	require.NoError(t, err)
	assert.Equal(t, -2.0, v)

	vec, err := a.Vector(0)
	require.NoError(t, err)
	assert.Equal(t, 3, vec.Len())
	assert.Equal(t, dtype.Float64, vec.DType())
	assert.Equal(t, []float64{3, -2, 0.5}, vec.Data())
}

func TestAppendValueRejectsOutOfRange(t *testing.T) {
	a, err := New[int8](testEngine(4))
	require.NoError(t, err)
	require.NoError(t, a.AppendValue(int64(-128)))
	require.NoError(t, a.AppendValue(2.0))

	err = a.AppendValue(300)
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
	err = a.AppendValue(1.5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))

	got, err := a.ToDense()
	require.NoError(t, err)
	assert.Equal(t, []int8{-128, 2}, got)
}

func TestSum(t *testing.T) {
	a, err := Arange(context.Background(), 101, testEngine(8))
	require.NoError(t, err)
	total, err := Sum(a)
	require.NoError(t, err)
	assert.Equal(t, int64(5050), total)

	f, err := FromDense(context.Background(), []float32{0.5, 0.25, 0.25}, testEngine(2))
	require.NoError(t, err)
	ftotal, err := Sum(f)
	require.NoError(t, err)
	assert.Equal(t, float32(1), ftotal)
}

func TestNewColumn(t *testing.T) {
	for _, d := range []dtype.DType{dtype.Bool, dtype.Int8, dtype.Int16, dtype.Int32, dtype.Int64,
		dtype.Uint8, dtype.Uint16, dtype.Uint32, dtype.Uint64, dtype.Float32, dtype.Float64} {
		col, err := NewColumn(d, testEngine(4))
		require.NoError(t, err)
		assert.Equal(t, d, col.DType())
		assert.Equal(t, 0, col.Len())
	}
	_, err := NewColumn(dtype.Invalid, testEngine(4))
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
}

func TestColumnFromDense(t *testing.T) {
	col, err := ColumnFromDense(context.Background(), []uint32{7, 8, 9}, testEngine(2))
	require.NoError(t, err)
	assert.Equal(t, dtype.Uint32, col.DType())
	v, err := col.Value(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), v)

	_, err = ColumnFromDense(context.Background(), []string{"a"}, testEngine(2))
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
}
