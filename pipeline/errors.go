package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable refusal reason.
type ErrorCode string

const (
	CodeNotAPipeline         ErrorCode = "NOT_A_PIPELINE"
	CodeUnboundedSource      ErrorCode = "UNBOUNDED_SOURCE"
	CodeUnsupportedCollector ErrorCode = "UNSUPPORTED_COLLECTOR"
	CodeNameExhausted        ErrorCode = "NAME_EXHAUSTED"
	CodeUnsupportedContext   ErrorCode = "UNSUPPORTED_CONTEXT"
)

// Error is a refusal to lower a pipeline. Errors compare equal under
// errors.Is when their codes match.
type Error struct {
	// Code classifies the refusal.
	Code ErrorCode
	// Message describes the offending construct.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotAPipeline         = &Error{Code: CodeNotAPipeline, Message: "not a stream pipeline"}
	ErrUnboundedSource      = &Error{Code: CodeUnboundedSource, Message: "unbounded source without limit"}
	ErrUnsupportedCollector = &Error{Code: CodeUnsupportedCollector, Message: "unsupported collector"}
	// ErrNameExhausted is never returned: allocation falls back to numeric
	// suffixes indefinitely.
	ErrNameExhausted        = &Error{Code: CodeNameExhausted, Message: "no free name"}
	ErrUnsupportedContext   = &Error{Code: CodeUnsupportedContext, Message: "unsupported statement context"}
)

// Errorf returns a new *Error with the given code.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func notAPipeline(format string, args ...any) *Error {
	return Errorf(CodeNotAPipeline, format, args...)
}
