package carray

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ajitpratap0/carray/pkg/compression"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// Chunk is an independently compressed block of elements. A Chunk is
// immutable once sealed, so any number of arrays and goroutines may share it.
type Chunk struct {
	payload  []byte
	n        int
	rawSize  int
	dtype    dtype.DType
	codec    compression.Compressor
	shuffled bool
	checksum uint64
}

// Seal compresses buf into a new chunk. When shuffle is set, element bytes
// are transposed before compression; bool chunks are bit-packed and never
// shuffled.
func Seal[T dtype.Element](buf []T, codec compression.Compressor, shuffle bool) (*Chunk, error) {
	if codec == nil {
		return nil, errors.New(errors.ErrorTypeCompression, "no codec configured")
	}
	d := dtype.Of[T]()
	raw := dtype.Encode(buf)
	shuffle = shuffle && d != dtype.Bool && d.Size() > 1 && len(buf) > 1

	c := &Chunk{
		n:        len(buf),
		rawSize:  len(raw),
		dtype:    d,
		codec:    codec,
		shuffled: shuffle,
		checksum: xxhash.Sum64(raw),
	}

	input := raw
	if shuffle {
		input = compression.Shuffle(raw, d.Size())
	}
	payload, err := codec.Compress(input)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCompression, "codec rejected chunk").
			WithDetail("codec", string(codec.Algorithm())).
			WithDetail("dtype", d.String()).
			WithDetail("elements", len(buf))
	}
	c.payload = payload
	return c, nil
}

// Decompress reproduces the raw element bytes and verifies them against the
// checksum recorded at seal time
func (c *Chunk) Decompress() ([]byte, error) {
	out, err := c.codec.Decompress(c.payload, c.rawSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCompression, "chunk payload is corrupt").
			WithDetail("codec", string(c.codec.Algorithm()))
	}
	if c.shuffled {
		out = compression.Unshuffle(out, c.dtype.Size())
	}
	if xxhash.Sum64(out) != c.checksum {
		return nil, errors.New(errors.ErrorTypeCompression, "chunk checksum mismatch").
			WithDetail("codec", string(c.codec.Algorithm()))
	}
	return out, nil
}

// Values decompresses c into a fresh []T
func Values[T dtype.Element](c *Chunk) ([]T, error) {
	if want := dtype.Of[T](); c.dtype != want {
		return nil, errors.Newf(errors.ErrorTypeType, "chunk holds %s, not %s", c.dtype, want)
	}
	raw, err := c.Decompress()
	if err != nil {
		return nil, err
	}
	vals, err := dtype.Decode[T](raw, c.n)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCompression, "chunk decoded to the wrong size")
	}
	return vals, nil
}

// Len returns the number of elements in the chunk
func (c *Chunk) Len() int { return c.n }

// DType returns the element type tag
func (c *Chunk) DType() dtype.DType { return c.dtype }

// Codec returns the algorithm the payload was compressed with. Level 0
// chunks report compression.None whatever codec was requested.
func (c *Chunk) Codec() compression.Algorithm { return c.codec.Algorithm() }

// Level returns the compression level of the payload
func (c *Chunk) Level() compression.Level { return c.codec.Level() }

// Shuffled reports whether the byte shuffle filter was applied
func (c *Chunk) Shuffled() bool { return c.shuffled }

// Checksum returns the xxhash64 of the raw element bytes
func (c *Chunk) Checksum() uint64 { return c.checksum }

// RawSize returns the size of the uncompressed element bytes
func (c *Chunk) RawSize() int { return c.rawSize }

// CompressedSize returns the size of the stored payload
func (c *Chunk) CompressedSize() int { return len(c.payload) }
