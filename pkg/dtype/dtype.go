// Package dtype defines the element types a compressed array can hold and the
// raw byte layout each of them uses inside a chunk.
package dtype

import (
	"fmt"
	"strings"
)

// DType is the element type tag recorded on arrays and chunks
type DType uint8

const (
	Invalid DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var names = [...]string{
	Invalid: "invalid",
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var sizes = [...]int{
	Invalid: 0,
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

func (d DType) String() string {
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Size returns the width in bytes of one element in memory.
// Bools are bit-packed inside chunks, so their stored width is smaller.
func (d DType) Size() int {
	if int(d) < len(sizes) {
		return sizes[d]
	}
	return 0
}

// Valid reports whether d is a known element type
func (d DType) Valid() bool { return d > Invalid && int(d) < len(names) }

// IsNumeric reports whether arithmetic is defined on d
func (d DType) IsNumeric() bool { return d.Valid() && d != Bool }

// IsFloat reports whether d is a floating point type
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

// IsUnsigned reports whether d is an unsigned integer type
func (d DType) IsUnsigned() bool { return d >= Uint8 && d <= Uint64 }

// IsInteger reports whether d is a signed or unsigned integer type
func (d DType) IsInteger() bool { return d >= Int8 && d <= Uint64 }

// Parse resolves a type name such as "int64" or "float32"
func Parse(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if i != int(Invalid) && n == s {
			return DType(i), nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}

// Element is the set of Go types an array can be parameterized with
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Of returns the tag for the element type T
func Of[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
