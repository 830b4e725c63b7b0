package dtype

import (
	"fmt"
	"unsafe"
)

// Chunks never leave the process, so numeric buffers are stored in host byte
// order and the byte view below is a reinterpretation, not a conversion.

// Encode returns the raw chunk layout for src. Numeric buffers are returned
// as a byte view that aliases src; bools are bit-packed into a fresh buffer.
func Encode[T Element](src []T) []byte {
	if len(src) == 0 {
		return []byte{}
	}
	if b, ok := any(src).([]bool); ok {
		return PackBools(b)
	}
	size := int(unsafe.Sizeof(src[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*size)
}

// EncodedSize returns the number of raw bytes Encode produces for n elements
func EncodedSize(d DType, n int) int {
	if d == Bool {
		return (n + 7) / 8
	}
	return n * d.Size()
}

// Decode rebuilds n elements of type T from raw. The result never aliases raw.
func Decode[T Element](raw []byte, n int) ([]T, error) {
	d := Of[T]()
	if want := EncodedSize(d, n); len(raw) != want {
		return nil, fmt.Errorf("raw payload is %d bytes, want %d for %d %s elements", len(raw), want, n, d)
	}
	out := make([]T, n)
	if n == 0 {
		return out, nil
	}
	if b, ok := any(out).([]bool); ok {
		UnpackBools(b, raw)
		return out, nil
	}
	size := int(unsafe.Sizeof(out[0]))
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), n*size), raw)
	return out, nil
}

// PackBools packs values one bit per element, least significant bit first
func PackBools(values []bool) []byte {
	packed := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}

// UnpackBools is the inverse of PackBools; len(dst) elements are read
func UnpackBools(dst []bool, packed []byte) {
	for i := range dst {
		dst[i] = packed[i/8]&(1<<(i%8)) != 0
	}
}
