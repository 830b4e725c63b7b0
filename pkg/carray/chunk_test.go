package carray

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/carray/pkg/compression"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

func mustCodec(t *testing.T, algo compression.Algorithm, level compression.Level) compression.Compressor {
	t.Helper()
	c, err := compression.NewCompressor(&compression.Config{Algorithm: algo, Level: level})
	require.NoError(t, err)
	return c
}

func roundTrip[T dtype.Element](t *testing.T, buf []T, codec compression.Compressor, shuffle bool) {
	t.Helper()
	c, err := Seal(buf, codec, shuffle)
	require.NoError(t, err)
	assert.Equal(t, len(buf), c.Len())
	assert.Equal(t, dtype.Of[T](), c.DType())

	out, err := Values[T](c)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestSealRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 7, 1000}
	for _, algo := range compression.Algorithms() {
		for level := compression.Store; level <= compression.Best; level++ {
			codec := mustCodec(t, algo, level)
			for _, n := range sizes {
				ints := make([]int64, n)
				floats := make([]float64, n)
				smalls := make([]uint16, n)
				bools := make([]bool, n)
				for i := 0; i < n; i++ {
					ints[i] = int64(i*i) - 500
					floats[i] = math.Sqrt(float64(i))
					smalls[i] = uint16(i % 300)
					bools[i] = i%3 == 0
				}
				name := string(algo) + "/" + level.String()
				t.Run(name, func(t *testing.T) {
					roundTrip(t, ints, codec, true)
					roundTrip(t, ints, codec, false)
					roundTrip(t, floats, codec, true)
					roundTrip(t, smalls, codec, true)
					roundTrip(t, bools, codec, true)
				})
			}
		}
	}
}

func TestSealRecordsCodec(t *testing.T) {
	c, err := Seal([]int32{1, 2, 3, 4}, mustCodec(t, compression.Zstd, 9), true)
	require.NoError(t, err)
	assert.Equal(t, compression.Zstd, c.Codec())
	assert.Equal(t, compression.Best, c.Level())
	assert.True(t, c.Shuffled())
	assert.Equal(t, 16, c.RawSize())
	assert.NotZero(t, c.Checksum())

	stored, err := Seal([]int32{1, 2, 3, 4}, mustCodec(t, compression.Zstd, 0), true)
	require.NoError(t, err)
	assert.Equal(t, compression.None, stored.Codec())
	assert.Equal(t, 16, stored.CompressedSize())

	b, err := Seal([]bool{true, false, true}, mustCodec(t, compression.LZ4, 5), true)
	require.NoError(t, err)
	assert.False(t, b.Shuffled())
	assert.Equal(t, 1, b.RawSize())
}

func TestSealNoCodec(t *testing.T) {
	_, err := Seal([]int64{1}, nil, false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCompression))
}

func TestSealDoesNotAliasInput(t *testing.T) {
	buf := []int64{10, 20, 30}
	c, err := Seal(buf, mustCodec(t, compression.None, 0), false)
	require.NoError(t, err)
	buf[0] = 99

	out, err := Values[int64](c)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, out)
}

func TestDecompressCorrupt(t *testing.T) {
	t.Run("checksum mismatch", func(t *testing.T) {
		c, err := Seal([]int64{1, 2, 3}, mustCodec(t, compression.None, 0), false)
		require.NoError(t, err)
		c.payload[0] ^= 0xff

		_, err = c.Decompress()
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCompression))
	})

	t.Run("truncated payload", func(t *testing.T) {
		buf := make([]int64, 512)
		for i := range buf {
			buf[i] = int64(i)
		}
		c, err := Seal(buf, mustCodec(t, compression.LZ4, 5), true)
		require.NoError(t, err)
		c.payload = c.payload[:len(c.payload)/2]

		_, err = Values[int64](c)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCompression))
	})
}

func TestValuesWrongType(t *testing.T) {
	c, err := Seal([]int64{1}, mustCodec(t, compression.LZ4, 1), false)
	require.NoError(t, err)
	_, err = Values[float64](c)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeType))
}
