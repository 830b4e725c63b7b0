package carray

import (
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// Iterator walks a range of an array in index order, decompressing each block
// once. An Iterator cannot be rewound; call Slice again to start over.
//
//	it, err := arr.Slice(0, arr.Len())
//	for it.Next() {
//	    use(it.Index(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator[T dtype.Element] struct {
	a          *Array[T]
	pos        int
	stop       int
	block      []T
	blockStart int
	idx        int
	cur        T
	err        error
}

// Slice returns an iterator over [start, stop). stop is clamped to Len; start
// must be within [0, stop].
func (a *Array[T]) Slice(start, stop int) (*Iterator[T], error) {
	if stop > a.length {
		stop = a.length
	}
	if start < 0 || stop < 0 || start > stop {
		return nil, errors.Newf(errors.ErrorTypeIndex, "invalid slice [%d:%d] of length %d", start, stop, a.length)
	}
	return &Iterator[T]{a: a, pos: start, stop: stop, idx: -1}, nil
}

// Iter returns an iterator over the whole array
func (a *Array[T]) Iter() *Iterator[T] {
	return &Iterator[T]{a: a, stop: a.length, idx: -1}
}

// Next advances to the next element
func (it *Iterator[T]) Next() bool {
	if it.err != nil || it.pos >= it.stop {
		return false
	}
	if it.block == nil || it.pos >= it.blockStart+len(it.block) {
		capacity := it.a.cfg.ChunkCapacity
		k := it.pos / capacity
		block, err := it.a.Chunk(k)
		if err != nil {
			it.err = err
			return false
		}
		it.block = block
		it.blockStart = k * capacity
	}
	it.cur = it.block[it.pos-it.blockStart]
	it.idx = it.pos
	it.pos++
	return true
}

// Value returns the current element
func (it *Iterator[T]) Value() T { return it.cur }

// Index returns the position of the current element
func (it *Iterator[T]) Index() int { return it.idx }

// Err returns the error that stopped iteration, if any
func (it *Iterator[T]) Err() error { return it.err }

// Collect drains the iterator into a slice
func (it *Iterator[T]) Collect() ([]T, error) {
	out := make([]T, 0, it.stop-it.pos)
	for it.Next() {
		out = append(out, it.cur)
	}
	return out, it.err
}
