package carray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/carray/pkg/errors"
)

func TestSlice(t *testing.T) {
	x, err := Arange(context.Background(), 23, testEngine(5))
	require.NoError(t, err)

	tests := []struct {
		name        string
		start, stop int
		want        []int64
	}{
		{"whole", 0, 23, nil},
		{"inside one chunk", 6, 9, []int64{6, 7, 8}},
		{"across chunks", 3, 12, []int64{3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"into tail", 19, 23, []int64{19, 20, 21, 22}},
		{"stop clamped", 21, 100, []int64{21, 22}},
		{"empty", 4, 4, []int64{}},
		{"start at end", 23, 23, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := x.Slice(tt.start, tt.stop)
			require.NoError(t, err)
			got, err := it.Collect()
			require.NoError(t, err)
			want := tt.want
			if want == nil {
				want = make([]int64, 23)
				for i := range want {
					want[i] = int64(i)
				}
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestSliceInvalid(t *testing.T) {
	x, err := Arange(context.Background(), 10, testEngine(4))
	require.NoError(t, err)
	for _, r := range [][2]int{{-1, 3}, {5, 2}, {11, 12}} {
		_, err := x.Slice(r[0], r[1])
		require.Error(t, err, "slice %v", r)
		assert.True(t, errors.IsType(err, errors.ErrorTypeIndex))
	}
}

func TestIteratorIndexAndRestart(t *testing.T) {
	x, err := FromDense(context.Background(), []uint16{5, 6, 7, 8, 9}, testEngine(2))
	require.NoError(t, err)

	it := x.Iter()
	assert.Equal(t, -1, it.Index())
	var idx []int
	for it.Next() {
		idx = append(idx, it.Index())
		assert.Equal(t, uint16(5+it.Index()), it.Value())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, idx)
	assert.False(t, it.Next())

	again, err := x.Iter().Collect()
	require.NoError(t, err)
	assert.Equal(t, []uint16{5, 6, 7, 8, 9}, again)
}
