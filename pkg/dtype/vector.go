package dtype

import "math"

// Vector is a dense, decompressed block of one column. It lets code that does
// not know the element type at compile time (tables, the evaluator) read
// blocks produced by any Array[T].
type Vector interface {
	Len() int
	DType() DType
	At(i int) any
	// Data returns the backing []T
	Data() any
}

// Slice adapts a typed buffer to Vector
type Slice[T Element] []T

func (s Slice[T]) Len() int     { return len(s) }
func (s Slice[T]) DType() DType { return Of[T]() }
func (s Slice[T]) At(i int) any { return s[i] }
func (s Slice[T]) Data() any    { return []T(s) }

// Convert coerces a scalar to T. Bools only convert to bool. Numeric values
// convert only when T can hold them: integers must be in range, floats
// stored in an integer type must be whole, and finite float64 values must
// not overflow float32. Integers stored in a float type may round.
func Convert[T Element](v any) (T, bool) {
	var zero T
	if !Accepts(Of[T](), v) {
		return zero, false
	}
	switch any(zero).(type) {
	case bool:
		b, ok := v.(bool)
		return any(b).(T), ok
	}
	switch x := v.(type) {
	case int:
		return fromInt64[T](int64(x)), true
	case int8:
		return fromInt64[T](int64(x)), true
	case int16:
		return fromInt64[T](int64(x)), true
	case int32:
		return fromInt64[T](int64(x)), true
	case int64:
		return fromInt64[T](x), true
	case uint8:
		return fromUint64[T](uint64(x)), true
	case uint16:
		return fromUint64[T](uint64(x)), true
	case uint32:
		return fromUint64[T](uint64(x)), true
	case uint64:
		return fromUint64[T](x), true
	case uint:
		return fromUint64[T](uint64(x)), true
	case float32:
		return fromFloat64[T](float64(x)), true
	case float64:
		return fromFloat64[T](x), true
	}
	return zero, false
}

func fromInt64[T Element](v int64) T {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(v)
	case *int16:
		*p = int16(v)
	case *int32:
		*p = int32(v)
	case *int64:
		*p = v
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *uint32:
		*p = uint32(v)
	case *uint64:
		*p = uint64(v)
	case *float32:
		*p = float32(v)
	case *float64:
		*p = float64(v)
	}
	return out
}

func fromUint64[T Element](v uint64) T {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(v)
	case *int16:
		*p = int16(v)
	case *int32:
		*p = int32(v)
	case *int64:
		*p = int64(v)
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *uint32:
		*p = uint32(v)
	case *uint64:
		*p = v
	case *float32:
		*p = float32(v)
	case *float64:
		*p = float64(v)
	}
	return out
}

func fromFloat64[T Element](v float64) T {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(v)
	case *int16:
		*p = int16(v)
	case *int32:
		*p = int32(v)
	case *int64:
		*p = int64(v)
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *uint32:
		*p = uint32(v)
	case *uint64:
		*p = uint64(v)
	case *float32:
		*p = float32(v)
	case *float64:
		*p = v
	}
	return out
}

// Accepts reports whether Convert would succeed for a column of type d
func Accepts(d DType, v any) bool {
	switch x := v.(type) {
	case bool:
		return d == Bool
	case int:
		return fitsInt(d, int64(x))
	case int8:
		return fitsInt(d, int64(x))
	case int16:
		return fitsInt(d, int64(x))
	case int32:
		return fitsInt(d, int64(x))
	case int64:
		return fitsInt(d, x)
	case uint8:
		return fitsInt(d, int64(x))
	case uint16:
		return fitsInt(d, int64(x))
	case uint32:
		return fitsInt(d, int64(x))
	case uint:
		return fitsUint(d, uint64(x))
	case uint64:
		return fitsUint(d, x)
	case float32:
		return fitsFloat(d, float64(x))
	case float64:
		return fitsFloat(d, x)
	}
	return false
}

func fitsInt(d DType, i int64) bool {
	switch d {
	case Int8:
		return i >= math.MinInt8 && i <= math.MaxInt8
	case Int16:
		return i >= math.MinInt16 && i <= math.MaxInt16
	case Int32:
		return i >= math.MinInt32 && i <= math.MaxInt32
	case Int64:
		return true
	case Uint8:
		return i >= 0 && i <= math.MaxUint8
	case Uint16:
		return i >= 0 && i <= math.MaxUint16
	case Uint32:
		return i >= 0 && i <= math.MaxUint32
	case Uint64:
		return i >= 0
	}
	return d.IsFloat()
}

func fitsUint(d DType, u uint64) bool {
	if u <= math.MaxInt64 {
		return fitsInt(d, int64(u))
	}
	return d == Uint64 || d.IsFloat()
}

func fitsFloat(d DType, f float64) bool {
	switch {
	case d == Float64:
		return true
	case d == Float32:
		return math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) <= math.MaxFloat32
	case !d.IsInteger():
		return false
	case math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f):
		return false
	case d == Uint64:
		// 2^64
		return f >= 0 && f < 18446744073709551616.0
	case f < -9223372036854775808.0 || f >= 9223372036854775808.0:
		return false
	}
	return fitsInt(d, int64(f))
}
