package carray

import (
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

// Positions yields the true positions of a mask in strictly increasing
// order. Each mask block is read once.
type Positions struct {
	mask    Mask
	n       int
	bsize   int
	blocks  int
	k       int
	block   []bool
	base    int
	off     int
	idx     int
	count   int
	err     error
	done    bool
	metrics *metrics.Metrics
}

// Where walks the true positions of mask
func Where(mask Mask) *Positions {
	return &Positions{
		mask:   mask,
		n:      mask.Len(),
		bsize:  mask.ChunkCapacity(),
		blocks: numBlocks(mask.Len(), mask.ChunkCapacity()),
		idx:    -1,
	}
}

// Observe records the number of produced positions in m once the walk ends
func (p *Positions) Observe(m *metrics.Metrics) *Positions {
	p.metrics = m
	return p
}

// Next advances to the next true position
func (p *Positions) Next() bool {
	for p.err == nil {
		for p.off < len(p.block) {
			o := p.off
			p.off++
			if p.block[o] {
				p.idx = p.base + o
				p.count++
				return true
			}
		}
		if p.k >= p.blocks {
			if !p.done {
				p.done = true
				p.metrics.Selected(p.count)
			}
			return false
		}
		block, err := p.mask.Chunk(p.k)
		if err != nil {
			p.err = err
			return false
		}
		p.base = p.k * p.bsize
		if rest := p.n - p.base; len(block) > rest {
			block = block[:rest]
		}
		p.block = block
		p.off = 0
		p.k++
	}
	return false
}

// Index returns the current position
func (p *Positions) Index() int { return p.idx }

// Count returns the number of positions produced so far
func (p *Positions) Count() int { return p.count }

// Err returns the error that stopped iteration, if any
func (p *Positions) Err() error { return p.err }

// Collect drains the remaining positions
func (p *Positions) Collect() ([]int, error) {
	var out []int
	for p.Next() {
		out = append(out, p.idx)
	}
	return out, p.err
}

// Where returns the positions at which mask is true. mask must have Len
// positions; its chunk capacity may differ from the array's.
func (a *Array[T]) Where(mask Mask) (*Positions, error) {
	if err := CheckMask(mask, a.length); err != nil {
		return nil, err
	}
	return Where(mask).Observe(a.metrics), nil
}

// cursor resolves ascending positions against an array, holding the block of
// the last position so every block is decompressed at most once per walk
type cursor[T dtype.Element] struct {
	a     *Array[T]
	k     int
	block []T
}

func newCursor[T dtype.Element](a *Array[T]) *cursor[T] {
	return &cursor[T]{a: a, k: -1}
}

func (c *cursor[T]) at(i int) (T, error) {
	capacity := c.a.cfg.ChunkCapacity
	if k := i / capacity; k != c.k {
		block, err := c.a.Chunk(k)
		if err != nil {
			var zero T
			return zero, err
		}
		c.k = k
		c.block = block
	}
	return c.block[i-c.k*capacity], nil
}

// Selection yields (index, value) pairs for the true positions of a mask in
// ascending index order
type Selection[T dtype.Element] struct {
	pos *Positions
	src *cursor[T]
	val T
	err error
}

// MaskedSelect returns the elements at which mask is true
func (a *Array[T]) MaskedSelect(mask Mask) (*Selection[T], error) {
	p, err := a.Where(mask)
	if err != nil {
		return nil, err
	}
	return &Selection[T]{pos: p, src: newCursor(a)}, nil
}

// Next advances to the next selected element
func (s *Selection[T]) Next() bool {
	if s.err != nil || !s.pos.Next() {
		return false
	}
	v, err := s.src.at(s.pos.Index())
	if err != nil {
		s.err = err
		return false
	}
	s.val = v
	return true
}

// Index returns the position of the current element
func (s *Selection[T]) Index() int { return s.pos.Index() }

// Value returns the current element
func (s *Selection[T]) Value() T { return s.val }

// Err returns the error that stopped iteration, if any
func (s *Selection[T]) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.pos.Err()
}

// Collect drains the remaining values
func (s *Selection[T]) Collect() ([]T, error) {
	var out []T
	for s.Next() {
		out = append(out, s.val)
	}
	return out, s.Err()
}

// WhereBitmap returns the true positions of mask as a roaring bitmap
func WhereBitmap(mask Mask) (*roaring.Bitmap, error) {
	if uint64(mask.Len()) > math.MaxUint32 {
		return nil, errors.Newf(errors.ErrorTypeIndex, "mask length %d exceeds bitmap range", mask.Len())
	}
	bm := roaring.New()
	capacity := mask.ChunkCapacity()
	buf := make([]uint32, 0, 64)
	for k := 0; k < numBlocks(mask.Len(), capacity); k++ {
		block, err := mask.Chunk(k)
		if err != nil {
			return nil, err
		}
		base := k * capacity
		buf = buf[:0]
		for o, v := range block {
			if v && base+o < mask.Len() {
				buf = append(buf, uint32(base+o))
			}
		}
		bm.AddMany(buf)
	}
	return bm, nil
}

// MaskFromBitmap builds a compressed mask of n positions that is true exactly
// at the members of bm
func MaskFromBitmap(bm *roaring.Bitmap, n int, cfg config.Engine, opts ...Option) (*Array[bool], error) {
	if !bm.IsEmpty() && int(bm.Maximum()) >= n {
		return nil, errors.Newf(errors.ErrorTypeIndex, "bitmap member %d out of range [0, %d)", bm.Maximum(), n)
	}
	out, err := New[bool](cfg, opts...)
	if err != nil {
		return nil, err
	}

	capacity := cfg.ChunkCapacity
	it := bm.Iterator()
	for base := 0; base < n; base += capacity {
		size := capacity
		if n-base < size {
			size = n - base
		}
		block := make([]bool, size)
		for it.HasNext() && int(it.PeekNext()) < base+size {
			block[int(it.Next())-base] = true
		}
		if err := out.AppendSlice(block); err != nil {
			return nil, err
		}
	}
	return out, nil
}
