// Package errors provides structured error handling for the carray engine.
//
// Every failure surfaced by the engine is an *Error carrying an ErrorType,
// so callers can branch on the category without string matching:
//
//	v, err := arr.Get(i)
//	if errors.IsType(err, errors.ErrorTypeIndex) {
//	    // out of range
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeParse represents malformed expression syntax
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeUnknownColumn represents a column name that is not present
	ErrorTypeUnknownColumn ErrorType = "unknown_column"
	// ErrorTypeType represents a non-numeric operand in arithmetic or comparison
	ErrorTypeType ErrorType = "type"
	// ErrorTypeLengthMismatch represents a mask or column length that differs from the expected one
	ErrorTypeLengthMismatch ErrorType = "length_mismatch"
	// ErrorTypeIndex represents an index outside [0, length)
	ErrorTypeIndex ErrorType = "index"
	// ErrorTypeCompression represents a codec rejecting input or detecting corruption
	ErrorTypeCompression ErrorType = "compression"
	// ErrorTypeConfig represents invalid configuration
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeState represents an operation that is invalid in the current lifecycle state
	ErrorTypeState ErrorType = "state"
	// ErrorTypeCanceled represents work stopped at a chunk boundary by context cancellation
	ErrorTypeCanceled ErrorType = "canceled"
	// ErrorTypeIO represents a failed read or write of an interchange stream
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeInternal represents internal engine errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
// Returns nil if err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether any *Error in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// TypeOf returns the type of the outermost *Error in err's chain, or "" if there is none
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
