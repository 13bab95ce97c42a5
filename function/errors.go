package function

import (
	"errors"
	"fmt"
)

// Error codes carried by FunctionError.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeExecution       = "EXECUTION_ERROR"
	CodeUnknownFunction = "UNKNOWN_FUNCTION"
)

var (
	// ErrSchemaMismatch matches any failure to decode call arguments into the
	// declared parameter shape.
	ErrSchemaMismatch = errors.New("arguments do not match function schema")
	// ErrUnknownFunction is only returned when a policy turns an unresolved
	// call into a failure. Registry.Call itself reports misses with ok == false.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrDuplicateFunction is returned when registering a name twice.
	ErrDuplicateFunction = errors.New("function already registered")
)

// FunctionError represents errors that occur during function dispatch.
type FunctionError struct {
	Function string `json:"function"`          // Name of the function that failed
	Message  string `json:"message"`           // Error message
	Code     string `json:"code"`              // Error code for categorization
	Err      error  `json:"-"`                 // Underlying cause
	Details  any    `json:"details,omitempty"` // Additional error details
}

func (e *FunctionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("function error [%s] in %s: %s", e.Code, e.Function, e.Message)
	}
	return fmt.Sprintf("function error in %s: %s", e.Function, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FunctionError) Unwrap() error { return e.Err }

// Is matches the sentinel associated with the error code.
func (e *FunctionError) Is(target error) bool {
	switch e.Code {
	case CodeValidation:
		return target == ErrSchemaMismatch
	case CodeUnknownFunction:
		return target == ErrUnknownFunction
	default:
		return false
	}
}

// newSchemaMismatch builds a VALIDATION_ERROR for fn.
func newSchemaMismatch(fn string, cause error) *FunctionError {
	return &FunctionError{
		Function: fn,
		Message:  fmt.Sprintf("parameter validation failed: %v", cause),
		Code:     CodeValidation,
		Err:      cause,
	}
}

// newUnknownFunction builds an UNKNOWN_FUNCTION error for fn.
func newUnknownFunction(fn string) *FunctionError {
	return &FunctionError{
		Function: fn,
		Message:  "no function registered under this name",
		Code:     CodeUnknownFunction,
	}
}

// UnknownFunctionError reports that name resolved to no registered function.
func UnknownFunctionError(name string) error { return newUnknownFunction(name) }
