// Package errors defines the error taxonomy used by the reconciliation engine.
//
// Errors carry a category, a specific code, an optional suggestion for the
// operator, and a context map. Categories map to CLI exit codes.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryStore          ErrorCategory = "store"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories.
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeEncodingError     ErrorCode = "encoding_error"

	// Parse errors
	CodeInvalidBlock  ErrorCode = "invalid_block"
	CodeInvalidRow    ErrorCode = "invalid_row"
	CodeEmptyResult   ErrorCode = "empty_result"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidState  ErrorCode = "invalid_state"

	// Store errors
	CodeMutationFailed ErrorCode = "mutation_failed"
	CodeQueryFailed    ErrorCode = "query_failed"
	CodeNotFound       ErrorCode = "not_found"

	// Reconciliation errors
	CodeRecordNotFound    ErrorCode = "record_not_found"
	CodeAlreadyReconciled ErrorCode = "already_reconciled"
	CodePartialFailure    ErrorCode = "partial_failure"
	CodeCoverSheetInvalid ErrorCode = "cover_sheet_invalid"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all engine errors.
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate CLI exit code for the error.
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryStore:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError.
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error.
func FileError(code ErrorCode, fileName string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", fileName)
		suggestion = "check if the file path is correct and the file exists"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported statement format: %s", fileName)
		suggestion = "supported data formats are .ofx/.ofc and .csv; other extensions can only be attached as documents"
	case CodeEncodingError:
		message = fmt.Sprintf("file is not valid UTF-8: %s", fileName)
		suggestion = "re-export the statement in UTF-8 encoding"
	default:
		message = fmt.Sprintf("file error: %s", fileName)
		suggestion = "check the file and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", fileName)
}

// ParseError creates a parsing-related error. Parsers are pure functions
// of file content and do not know the file name; callers that do attach
// it via WithContext.
func ParseError(code ErrorCode, position int, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidBlock:
		message = fmt.Sprintf("invalid transaction block %d skipped", position)
		suggestion = "verify the export if records are missing"
	case CodeInvalidRow:
		message = fmt.Sprintf("invalid row skipped at line %d", position)
		suggestion = "verify the row's date and amount columns"
	case CodeEmptyResult:
		message = "no transactions could be recovered"
		suggestion = "check that the file is a bank statement export and not empty"
	default:
		message = fmt.Sprintf("parse error at position %d", position)
		suggestion = "check the file format and data integrity"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("position", position)
}

// ValidationError creates a validation-related error.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be decimal numbers; comma and dot decimal separators are accepted"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use DD/MM/YYYY or YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidState:
		message = fmt.Sprintf("operation not allowed for field '%s': %v", field, value)
		suggestion = "check the record's lifecycle state before retrying"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// StoreError creates a store-related error.
func StoreError(code ErrorCode, operation string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeMutationFailed:
		message = fmt.Sprintf("store mutation failed during %s", operation)
		suggestion = "the record was left unchanged; re-fetch the ledger window and retry"
	case CodeQueryFailed:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "check store connectivity and retry"
	case CodeNotFound:
		message = fmt.Sprintf("entity not found during %s", operation)
		suggestion = "the entry may have been removed; re-fetch the ledger window"
	default:
		message = fmt.Sprintf("store error during %s", operation)
		suggestion = "check the store and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ReconciliationError creates a reconciliation-related error.
func ReconciliationError(code ErrorCode, operation string, err error) *EngineError {
	var message, suggestion string

	switch code {
	case CodeRecordNotFound:
		message = fmt.Sprintf("statement record not found during %s", operation)
		suggestion = "the record may already be reconciled or the session was cleared"
	case CodeAlreadyReconciled:
		message = fmt.Sprintf("target entry is already reconciled during %s", operation)
		suggestion = "pick an unreconciled entry or refresh the session"
	case CodePartialFailure:
		message = fmt.Sprintf("some updates failed during %s", operation)
		suggestion = "re-fetch the ledger window to learn the resulting state"
	case CodeCoverSheetInvalid:
		message = fmt.Sprintf("invalid cover sheet figures during %s", operation)
		suggestion = "gross yield, withheld tax and resulting balance must be provided"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the session and configuration"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error.
func InternalError(code ErrorCode, operation string, err error) *EngineError {
	message := fmt.Sprintf("internal error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// IsEngineError checks if an error is an EngineError.
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an EngineError.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}
