package compression

// Shuffle transposes src so that byte k of every element is stored
// contiguously. Numeric columns whose values share high-order bytes compress
// much better in this layout. Trailing bytes that do not form a whole
// element are copied unchanged.
func Shuffle(src []byte, width int) []byte {
	dst := make([]byte, len(src))
	if width <= 1 || len(src) < 2*width {
		copy(dst, src)
		return dst
	}
	n := len(src) / width
	for i := 0; i < n; i++ {
		base := i * width
		for k := 0; k < width; k++ {
			dst[k*n+i] = src[base+k]
		}
	}
	copy(dst[n*width:], src[n*width:])
	return dst
}

// Unshuffle reverses Shuffle for the same width
func Unshuffle(src []byte, width int) []byte {
	dst := make([]byte, len(src))
	if width <= 1 || len(src) < 2*width {
		copy(dst, src)
		return dst
	}
	n := len(src) / width
	for i := 0; i < n; i++ {
		base := i * width
		for k := 0; k < width; k++ {
			dst[base+k] = src[k*n+i]
		}
	}
	copy(dst[n*width:], src[n*width:])
	return dst
}
