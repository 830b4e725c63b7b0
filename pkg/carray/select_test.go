package carray

import (
	"context"
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

func lessThan(t *testing.T, a *Array[int64], k int64, capacity int) *Array[bool] {
	t.Helper()
	dense, err := a.ToDense()
	require.NoError(t, err)
	mask := make([]bool, len(dense))
	for i, v := range dense {
		mask[i] = v < k
	}
	m, err := FromDense(context.Background(), mask, testEngine(capacity))
	require.NoError(t, err)
	return m
}

func TestSelectScenario(t *testing.T) {
	x, err := Arange(context.Background(), 10, testEngine(4))
	require.NoError(t, err)
	mask := lessThan(t, x, 3, 4)

	p, err := x.Where(mask)
	require.NoError(t, err)
	idx, err := p.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, idx)
	assert.Equal(t, 3, p.Count())

	s, err := x.MaskedSelect(mask)
	require.NoError(t, err)
	vals, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, vals)
}

func TestSelectIndexValuePairs(t *testing.T) {
	x, err := FromDense(context.Background(), []float64{10, 11, 12, 13, 14, 15, 16}, testEngine(3))
	require.NoError(t, err)
	mask := DenseMask{false, true, false, false, true, true, false}

	s, err := x.MaskedSelect(mask)
	require.NoError(t, err)
	var idx []int
	var vals []float64
	for s.Next() {
		idx = append(idx, s.Index())
		vals = append(vals, s.Value())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []int{1, 4, 5}, idx)
	assert.Equal(t, []float64{11, 14, 15}, vals)
}

func TestSelectRandomMasks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 1000
	buf := make([]int32, n)
	for i := range buf {
		buf[i] = rng.Int31()
	}
	x, err := FromDense(context.Background(), buf, testEngine(64))
	require.NoError(t, err)

	for _, density := range []float64{0, 0.01, 0.5, 1} {
		dense := make([]bool, n)
		var want []int32
		var wantIdx []int
		for i := range dense {
			dense[i] = rng.Float64() < density
			if dense[i] {
				want = append(want, buf[i])
				wantIdx = append(wantIdx, i)
			}
		}

		// the mask's chunking need not match the source's
		for _, capacity := range []int{7, 64, 1000} {
			m, err := FromDense(context.Background(), dense, testEngine(capacity))
			require.NoError(t, err)

			p, err := x.Where(m)
			require.NoError(t, err)
			idx, err := p.Collect()
			require.NoError(t, err)
			assert.Equal(t, wantIdx, idx)
			for i := 1; i < len(idx); i++ {
				assert.Less(t, idx[i-1], idx[i])
			}
			count, err := CountTrue(m)
			require.NoError(t, err)
			assert.Len(t, idx, count)

			s, err := x.MaskedSelect(m)
			require.NoError(t, err)
			got, err := s.Collect()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		s, err := x.MaskedSelect(DenseMask(dense))
		require.NoError(t, err)
		got, err := s.Collect()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSelectDecompressesEachChunkOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	x, err := Arange(context.Background(), 100, testEngine(10), WithMetrics(metrics.New(reg)))
	require.NoError(t, err)

	mask := make(DenseMask, 100)
	for _, i := range []int{21, 22, 29, 70, 75} {
		mask[i] = true
	}
	s, err := x.MaskedSelect(mask)
	require.NoError(t, err)
	vals, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int64{21, 22, 29, 70, 75}, vals)
	assert.Equal(t, 2.0, counterValue(t, reg, "carray_chunks_decompressed_total"))
	assert.Equal(t, 5.0, counterValue(t, reg, "carray_selected_positions_total"))

	full := make(DenseMask, 100)
	for i := range full {
		full[i] = true
	}
	s, err = x.MaskedSelect(full)
	require.NoError(t, err)
	_, err = s.Collect()
	require.NoError(t, err)
	// the single cache slot holds chunk 7 until the walk reaches chunk 0
	assert.Equal(t, 12.0, counterValue(t, reg, "carray_chunks_decompressed_total"))
}

func TestSelectReusesCachedChunk(t *testing.T) {
	reg := prometheus.NewRegistry()
	x, err := Arange(context.Background(), 100, testEngine(10), WithMetrics(metrics.New(reg)))
	require.NoError(t, err)

	mask := make(DenseMask, 100)
	mask[75] = true
	_, err = x.Where(mask)
	require.NoError(t, err)
	s, err := x.MaskedSelect(mask)
	require.NoError(t, err)
	_, err = s.Collect()
	require.NoError(t, err)
	require.Equal(t, 1.0, counterValue(t, reg, "carray_chunks_decompressed_total"))

	// a walk that starts in the cached chunk hits it
	tail := make(DenseMask, 100)
	for i := 70; i < 100; i++ {
		tail[i] = true
	}
	s, err = x.MaskedSelect(tail)
	require.NoError(t, err)
	vals, err := s.Collect()
	require.NoError(t, err)
	assert.Len(t, vals, 30)
	assert.Equal(t, 3.0, counterValue(t, reg, "carray_chunks_decompressed_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "carray_cache_hits_total"))
}

func TestSelectLengthMismatch(t *testing.T) {
	x, err := Arange(context.Background(), 5, testEngine(2))
	require.NoError(t, err)

	_, err = x.Where(DenseMask{true, false})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLengthMismatch))

	_, err = x.MaskedSelect(DenseMask(make([]bool, 6)))
	assert.True(t, errors.IsType(err, errors.ErrorTypeLengthMismatch))

	_, err = x.Where(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLengthMismatch))
}

func TestSelectEmpty(t *testing.T) {
	x, err := New[int64](testEngine(4))
	require.NoError(t, err)
	s, err := x.MaskedSelect(DenseMask{})
	require.NoError(t, err)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestWhereBitmap(t *testing.T) {
	x, err := Arange(context.Background(), 50, testEngine(8))
	require.NoError(t, err)
	mask := lessThan(t, x, 12, 8)

	bm, err := WhereBitmap(mask)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), bm.GetCardinality())
	assert.True(t, bm.Contains(0))
	assert.True(t, bm.Contains(11))
	assert.False(t, bm.Contains(12))

	back, err := MaskFromBitmap(bm, 50, testEngine(8))
	require.NoError(t, err)
	assert.Equal(t, 50, back.Len())
	want, err := mask.ToDense()
	require.NoError(t, err)
	got, err := back.ToDense()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMaskFromBitmapOutOfRange(t *testing.T) {
	bm := roaring.BitmapOf(1, 5, 9)
	_, err := MaskFromBitmap(bm, 9, testEngine(4))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))

	m, err := MaskFromBitmap(bm, 10, testEngine(4))
	require.NoError(t, err)
	p := Where(m)
	idx, err := p.Collect()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 9}, idx)
}

func TestDenseMask(t *testing.T) {
	m := DenseMask{true, false, true}
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 3, m.ChunkCapacity())
	_, err := m.Chunk(1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))

	count, err := CountTrue(m)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, 1, DenseMask{}.ChunkCapacity())
	count, err = CountTrue(DenseMask{})
	require.NoError(t, err)
	assert.Zero(t, count)
}
