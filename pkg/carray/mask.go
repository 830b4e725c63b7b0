package carray

import (
	"github.com/ajitpratap0/carray/pkg/errors"
)

// Mask is a boolean sequence read block by block. *Array[bool] and DenseMask
// both implement it.
type Mask interface {
	Len() int
	ChunkCapacity() int
	// Chunk returns block k; the blocks concatenated in order hold Len values
	Chunk(k int) ([]bool, error)
}

// DenseMask is an uncompressed mask held as a single block
type DenseMask []bool

// Len returns the number of positions
func (m DenseMask) Len() int { return len(m) }

// ChunkCapacity returns the block size, which is the whole mask
func (m DenseMask) ChunkCapacity() int {
	if len(m) == 0 {
		return 1
	}
	return len(m)
}

// Chunk returns the mask itself for k == 0
func (m DenseMask) Chunk(k int) ([]bool, error) {
	if k != 0 || len(m) == 0 {
		return nil, errors.Newf(errors.ErrorTypeIndex, "block %d out of range for dense mask of length %d", k, len(m))
	}
	return m, nil
}

// CountTrue returns the number of true positions in m
func CountTrue(m Mask) (int, error) {
	n := 0
	for k := 0; k < numBlocks(m.Len(), m.ChunkCapacity()); k++ {
		block, err := m.Chunk(k)
		if err != nil {
			return 0, err
		}
		for _, v := range block {
			if v {
				n++
			}
		}
	}
	return n, nil
}

func numBlocks(n, capacity int) int {
	if n == 0 || capacity <= 0 {
		return 0
	}
	return (n + capacity - 1) / capacity
}

// CheckMask fails with ErrorTypeLengthMismatch unless m has n positions
func CheckMask(m Mask, n int) error {
	if m == nil {
		return errors.New(errors.ErrorTypeLengthMismatch, "mask is nil")
	}
	if m.Len() != n {
		return errors.Newf(errors.ErrorTypeLengthMismatch, "mask length %d does not match length %d", m.Len(), n).
			WithDetail("mask_len", m.Len()).
			WithDetail("len", n)
	}
	return nil
}
