package ctable

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/dtype"
)

// blocks holds the current decompressed block of every column
type blocks struct {
	t     *Table
	k     int
	start int
	vecs  []dtype.Vector
}

func newBlocks(t *Table) *blocks {
	return &blocks{t: t, k: -1, vecs: make([]dtype.Vector, len(t.cols))}
}

// row materializes row i, loading the block that holds it when i has moved
// past the current one
func (b *blocks) row(i int) (Row, error) {
	if k := i / b.t.capacity; k != b.k {
		for c, col := range b.t.cols {
			v, err := col.Vector(k)
			if err != nil {
				return nil, err
			}
			b.vecs[c] = v
		}
		b.k = k
		b.start = k * b.t.capacity
	}
	row := make(Row, len(b.vecs))
	for c, v := range b.vecs {
		row[c] = v.At(i - b.start)
	}
	return row, nil
}

// RowIterator walks rows in order, reading all columns block by block in
// lock-step
type RowIterator struct {
	b   *blocks
	pos int
	n   int
	idx int
	row Row
	err error
}

// Rows returns an iterator over every row
func (t *Table) Rows() *RowIterator {
	return &RowIterator{b: newBlocks(t), n: t.Len(), idx: -1}
}

// Next advances to the next row
func (it *RowIterator) Next() bool {
	if it.err != nil || it.pos >= it.n {
		return false
	}
	row, err := it.b.row(it.pos)
	if err != nil {
		it.err = err
		return false
	}
	it.row = row
	it.idx = it.pos
	it.pos++
	return true
}

// Row returns the current row. Each row is a fresh slice the caller may keep.
func (it *RowIterator) Row() Row { return it.row }

// Index returns the position of the current row
func (it *RowIterator) Index() int { return it.idx }

// Err returns the error that stopped iteration, if any
func (it *RowIterator) Err() error { return it.err }

// RowSelection yields (index, row) pairs for the true positions of a mask in
// ascending order. Only the blocks holding selected rows are decompressed.
type RowSelection struct {
	pos *carray.Positions
	b   *blocks
	row Row
	err error
}

// Where returns the positions at which mask is true
func (t *Table) Where(mask carray.Mask) (*carray.Positions, error) {
	if err := carray.CheckMask(mask, t.Len()); err != nil {
		return nil, err
	}
	return carray.Where(mask).Observe(t.metrics), nil
}

// WhereBitmap returns the positions at which mask is true as a bitmap
func (t *Table) WhereBitmap(mask carray.Mask) (*roaring.Bitmap, error) {
	if err := carray.CheckMask(mask, t.Len()); err != nil {
		return nil, err
	}
	return carray.WhereBitmap(mask)
}

// MaskFromBitmap builds a compressed mask over the table's rows holding true
// at every member of bm
func (t *Table) MaskFromBitmap(bm *roaring.Bitmap) (*carray.Array[bool], error) {
	return carray.MaskFromBitmap(bm, t.Len(), t.Engine(),
		carray.WithLogger(t.logger), carray.WithMetrics(t.metrics))
}

// MaskedSelect returns the rows at which mask is true. The mask may be a
// carray.DenseMask or a compressed *carray.Array[bool] of any chunk capacity.
func (t *Table) MaskedSelect(mask carray.Mask) (*RowSelection, error) {
	p, err := t.Where(mask)
	if err != nil {
		return nil, err
	}
	return &RowSelection{pos: p, b: newBlocks(t)}, nil
}

// Next advances to the next selected row
func (s *RowSelection) Next() bool {
	if s.err != nil || !s.pos.Next() {
		return false
	}
	row, err := s.b.row(s.pos.Index())
	if err != nil {
		s.err = err
		return false
	}
	s.row = row
	return true
}

// Index returns the position of the current row
func (s *RowSelection) Index() int { return s.pos.Index() }

// Row returns the current row
func (s *RowSelection) Row() Row { return s.row }

// Err returns the error that stopped iteration, if any
func (s *RowSelection) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.pos.Err()
}

// Collect drains the remaining rows
func (s *RowSelection) Collect() ([]Row, error) {
	var out []Row
	for s.Next() {
		out = append(out, s.row)
	}
	return out, s.Err()
}
