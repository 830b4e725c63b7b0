// Package carray implements a chunked, compressed, in-memory array.
//
// An Array holds an ordered run of sealed chunks followed by an uncompressed
// tail. Appends fill the tail; when it reaches the configured chunk capacity
// it is compressed into a new Chunk and a fresh tail begins. Reads decompress
// whole chunks and keep the most recently used ones in a small per-array
// cache.
//
// Arrays are not safe for concurrent mutation. Concurrent readers should each
// take their own handle with Clone, which shares the immutable chunks but not
// the cache.
package carray

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/ajitpratap0/carray/pkg/compression"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

// Array is a compressed, chunked sequence of T.
//
// Invariants: every sealed chunk holds exactly ChunkCapacity elements, the
// tail holds fewer, and the sealed lengths plus the tail length equal Len.
type Array[T dtype.Element] struct {
	cfg    config.Engine
	codec  compression.Compressor
	chunks []*Chunk
	tail   []T
	length int
	frozen bool

	cache   *lru.Cache[int, []T]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Stats summarizes the storage of an array
type Stats struct {
	Len             int     `json:"len"`
	Chunks          int     `json:"chunks"`
	TailLen         int     `json:"tail_len"`
	RawBytes        int64   `json:"raw_bytes"`
	CompressedBytes int64   `json:"compressed_bytes"`
	TailBytes       int64   `json:"tail_bytes"`
	Ratio           float64 `json:"ratio"`
}

// Number is the set of element types Sum accepts
type Number interface {
	dtype.Element
	constraints.Integer | constraints.Float
}

// New creates an empty array
func New[T dtype.Element](cfg config.Engine, opts ...Option) (*Array[T], error) {
	return newArray[T](cfg, buildOptions(opts))
}

func newArray[T dtype.Element](cfg config.Engine, o options) (*Array[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var codec compression.Compressor
	var err error
	if o.codecs != nil {
		codec, err = o.codecs.Get(cfg.Compression())
	} else {
		c := cfg.Compression()
		codec, err = compression.NewCompressor(&c)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create compressor")
	}

	cache, err := lru.New[int, []T](cfg.CacheChunks)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create chunk cache")
	}

	return &Array[T]{
		cfg:     cfg,
		codec:   codec,
		cache:   cache,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// Len returns the number of elements
func (a *Array[T]) Len() int { return a.length }

// DType returns the element type tag
func (a *Array[T]) DType() dtype.DType { return dtype.Of[T]() }

// ChunkCapacity returns the number of elements per sealed chunk
func (a *Array[T]) ChunkCapacity() int { return a.cfg.ChunkCapacity }

// NumChunks returns the number of sealed chunks
func (a *Array[T]) NumChunks() int { return len(a.chunks) }

// NumBlocks returns the number of readable blocks: the sealed chunks plus the
// tail when it is not empty
func (a *Array[T]) NumBlocks() int {
	if len(a.tail) > 0 {
		return len(a.chunks) + 1
	}
	return len(a.chunks)
}

// Config returns the engine settings the array was built with
func (a *Array[T]) Config() config.Engine { return a.cfg }

// Freeze moves the array to its terminal state. Reads keep working; appends
// fail with ErrorTypeState.
func (a *Array[T]) Freeze() { a.frozen = true }

// Frozen reports whether Freeze was called
func (a *Array[T]) Frozen() bool { return a.frozen }

// Append adds v to the tail, sealing the tail into a chunk when it is full.
// If sealing fails the value is not added.
func (a *Array[T]) Append(v T) error {
	if a.frozen {
		return errors.New(errors.ErrorTypeState, "append to frozen array")
	}
	if a.tail == nil {
		a.tail = make([]T, 0, a.cfg.ChunkCapacity)
	}
	a.tail = append(a.tail, v)
	if len(a.tail) == a.cfg.ChunkCapacity {
		if err := a.sealTail(); err != nil {
			a.tail = a.tail[:len(a.tail)-1]
			return err
		}
	}
	a.length++
	return nil
}

// AppendSlice appends every element of vs in order. On a sealing error the
// elements appended before the failing chunk remain.
func (a *Array[T]) AppendSlice(vs []T) error {
	if a.frozen {
		return errors.New(errors.ErrorTypeState, "append to frozen array")
	}
	for len(vs) > 0 {
		if a.tail == nil {
			a.tail = make([]T, 0, a.cfg.ChunkCapacity)
		}
		room := a.cfg.ChunkCapacity - len(a.tail)
		if room > len(vs) {
			room = len(vs)
		}
		before := len(a.tail)
		a.tail = append(a.tail, vs[:room]...)
		if len(a.tail) == a.cfg.ChunkCapacity {
			if err := a.sealTail(); err != nil {
				a.tail = a.tail[:before]
				return err
			}
		}
		a.length += room
		vs = vs[room:]
	}
	return nil
}

// sealTail compresses the full tail into a new chunk. The old tail buffer is
// left untouched so blocks handed out earlier stay valid. Sealed chunk
// indices never held cached content, so the cache needs no invalidation.
func (a *Array[T]) sealTail() error {
	c, err := Seal(a.tail, a.codec, a.cfg.Shuffle)
	if err != nil {
		return err
	}
	a.chunks = append(a.chunks, c)
	a.tail = nil
	a.metrics.ChunkSealed(string(c.Codec()), c.RawSize(), c.CompressedSize())
	a.logger.Debug("chunk sealed",
		zap.Int("chunk", len(a.chunks)-1),
		zap.String("codec", string(c.Codec())),
		zap.Int("raw_bytes", c.RawSize()),
		zap.Int("compressed_bytes", c.CompressedSize()))
	return nil
}

// Get returns the element at index i
func (a *Array[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= a.length {
		return zero, errors.Newf(errors.ErrorTypeIndex, "index %d out of range [0, %d)", i, a.length)
	}
	k := i / a.cfg.ChunkCapacity
	block, err := a.Chunk(k)
	if err != nil {
		return zero, err
	}
	return block[i-k*a.cfg.ChunkCapacity], nil
}

// Chunk returns the dense contents of block k: a sealed chunk, or the tail
// when k == NumChunks. Sealed chunks are served through the decompression
// cache. The returned slice is shared and must not be modified.
func (a *Array[T]) Chunk(k int) ([]T, error) {
	if k < 0 || k >= a.NumBlocks() {
		return nil, errors.Newf(errors.ErrorTypeIndex, "block %d out of range [0, %d)", k, a.NumBlocks())
	}
	if k == len(a.chunks) {
		return a.tail[:len(a.tail):len(a.tail)], nil
	}

	if vals, ok := a.cache.Get(k); ok {
		a.metrics.CacheHit()
		return vals, nil
	}
	a.metrics.CacheMiss()

	c := a.chunks[k]
	vals, err := Values[T](c)
	if err != nil {
		return nil, err
	}
	a.metrics.ChunkDecompressed(string(c.Codec()))
	a.cache.Add(k, vals)
	a.logger.Debug("chunk cache miss", zap.Int("chunk", k))
	return vals, nil
}

// SealedChunk returns sealed chunk k
func (a *Array[T]) SealedChunk(k int) (*Chunk, error) {
	if k < 0 || k >= len(a.chunks) {
		return nil, errors.Newf(errors.ErrorTypeIndex, "chunk %d out of range [0, %d)", k, len(a.chunks))
	}
	return a.chunks[k], nil
}

// CachedChunks returns the indices currently held by the decompression
// cache, least recently used first
func (a *Array[T]) CachedChunks() []int {
	return a.cache.Keys()
}

// Vector returns block k as a dtype.Vector
func (a *Array[T]) Vector(k int) (dtype.Vector, error) {
	block, err := a.Chunk(k)
	if err != nil {
		return nil, err
	}
	return dtype.Slice[T](block), nil
}

// Value returns the element at index i boxed as any
func (a *Array[T]) Value(i int) (any, error) {
	v, err := a.Get(i)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// AppendValue converts v to T and appends it. Values T cannot hold, such as
// 300 for int8 or 1.5 for int64, are rejected with ErrorTypeType.
func (a *Array[T]) AppendValue(v any) error {
	t, ok := dtype.Convert[T](v)
	if !ok {
		return errors.Newf(errors.ErrorTypeType, "cannot append %T to %s array", v, a.DType())
	}
	return a.Append(t)
}

// ToDense decompresses the whole array into a new slice
func (a *Array[T]) ToDense() ([]T, error) {
	out := make([]T, 0, a.length)
	for k := 0; k < a.NumBlocks(); k++ {
		block, err := a.Chunk(k)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

// DenseData is ToDense behind the Column interface
func (a *Array[T]) DenseData() (any, error) {
	out, err := a.ToDense()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns an independent handle that shares the sealed chunks and
// copies the tail. The clone has its own cache, so the original and the
// clone can be read from different goroutines.
func (a *Array[T]) Clone() *Array[T] {
	cache, _ := lru.New[int, []T](a.cfg.CacheChunks)
	c := &Array[T]{
		cfg:     a.cfg,
		codec:   a.codec,
		chunks:  append([]*Chunk(nil), a.chunks...),
		length:  a.length,
		frozen:  a.frozen,
		cache:   cache,
		logger:  a.logger,
		metrics: a.metrics,
	}
	if len(a.tail) > 0 {
		c.tail = make([]T, len(a.tail), a.cfg.ChunkCapacity)
		copy(c.tail, a.tail)
	}
	return c
}

// CloneColumn is Clone behind the Column interface
func (a *Array[T]) CloneColumn() Column { return a.Clone() }

// Stats reports storage sizes
func (a *Array[T]) Stats() Stats {
	s := Stats{
		Len:       a.length,
		Chunks:    len(a.chunks),
		TailLen:   len(a.tail),
		TailBytes: int64(dtype.EncodedSize(a.DType(), len(a.tail))),
	}
	for _, c := range a.chunks {
		s.RawBytes += int64(c.RawSize())
		s.CompressedBytes += int64(c.CompressedSize())
	}
	if s.CompressedBytes > 0 {
		s.Ratio = float64(s.RawBytes) / float64(s.CompressedBytes)
	}
	return s
}

// Sum adds every element of a, decompressing one block at a time
func Sum[T Number](a *Array[T]) (T, error) {
	var total T
	for k := 0; k < a.NumBlocks(); k++ {
		block, err := a.Chunk(k)
		if err != nil {
			return total, err
		}
		for _, v := range block {
			total += v
		}
	}
	return total, nil
}
