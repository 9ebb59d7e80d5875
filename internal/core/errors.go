// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// NewDiagnostic turns an error into a diagnostic for the given symbol and stage.
func NewDiagnostic(symbol, stage string, err error) Diagnostic {
	return Diagnostic{Symbol: symbol, Stage: stage, Message: err.Error()}
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrDataQuality    = &Error{Code: "DATA_QUALITY", Message: "required field missing or series empty"}

	// Computation errors
	ErrDegenerate = &Error{Code: "DEGENERATE_COMPUTATION", Message: "degenerate computation resolved by sentinel"}

	// Collector errors
	ErrCollectorFailed = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}

	// Strategy errors
	ErrStrategyFailed  = &Error{Code: "STRATEGY_FAILED", Message: "strategy evaluation failed"}
	ErrUnknownStrategy = &Error{Code: "UNKNOWN_STRATEGY", Message: "unknown strategy"}

	// Storage errors
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "archive write failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
