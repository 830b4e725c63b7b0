// Package errors provides examples of structured error handling in carray.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/carray/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeIndex, "index out of range").
		WithDetail("index", 12).
		WithDetail("length", 10)

	fmt.Println(err.Error())

	// Output:
	// index: index out of range
}

// ExampleNewf shows formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeUnknownColumn, "column %q not found", "y")
	fmt.Println(err)

	// Output:
	// unknown_column: column "y" not found
}

// ExampleWrap shows how a codec failure is wrapped with chunk context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeCompression, "failed to decompress chunk").
		WithDetail("chunk", 3)

	if errors.IsType(err, errors.ErrorTypeCompression) {
		fmt.Println("This is a compression error")
	}
	fmt.Println(err)

	// Output:
	// This is a compression error
	// compression: failed to decompress chunk: unexpected EOF
}

// ExampleIsType demonstrates that IsType inspects the whole chain.
func ExampleIsType() {
	colErr := errors.New(errors.ErrorTypeCompression, "checksum mismatch")
	wrapped := errors.Wrap(colErr, errors.ErrorTypeInternal, "row iteration failed")

	fmt.Printf("Is internal: %v\n", errors.IsType(wrapped, errors.ErrorTypeInternal))
	fmt.Printf("Contains compression: %v\n", errors.IsType(wrapped, errors.ErrorTypeCompression))
	fmt.Printf("Contains parse: %v\n", errors.IsType(wrapped, errors.ErrorTypeParse))
	fmt.Printf("Outermost type: %s\n", errors.TypeOf(wrapped))

	// Output:
	// Is internal: true
	// Contains compression: true
	// Contains parse: false
	// Outermost type: internal
}

// Example_errorChain shows how contexts stack when wrapping.
func Example_errorChain() {
	err := parseExpression("x <")
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeInternal, "evaluate failed").
			WithDetail("table", "bench")
		fmt.Println("Full error chain:", err)
	}

	// Output:
	// Full error chain: internal: evaluate failed: parse: unexpected end of expression
}

func parseExpression(s string) error {
	return errors.New(errors.ErrorTypeParse, "unexpected end of expression").
		WithDetail("expression", s)
}

// Example_customErrorHandling shows how to read the structured fields.
func Example_customErrorHandling() {
	handleError := func(err error) {
		if err == nil {
			return
		}
		if e, ok := err.(*errors.Error); ok {
			fmt.Printf("Error Type: %s\n", e.Type)
			fmt.Printf("Message: %s\n", e.Message)
			if want, ok := e.Details["expected"]; ok {
				fmt.Printf("  expected: %v\n", want)
			}
			if got, ok := e.Details["actual"]; ok {
				fmt.Printf("  actual: %v\n", got)
			}
		}
	}

	err := errors.New(errors.ErrorTypeLengthMismatch, "mask length does not match source").
		WithDetail("expected", 10).
		WithDetail("actual", 9)

	handleError(err)

	// Output:
	// Error Type: length_mismatch
	// Message: mask length does not match source
	//   expected: 10
	//   actual: 9
}
