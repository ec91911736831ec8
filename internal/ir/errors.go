package ir

import (
	"errors"
	"fmt"
)

// ValidationCode categorizes shape validation failures.
type ValidationCode string

const (
	// CodeMissingID indicates a record has no "id" field.
	CodeMissingID ValidationCode = "MISSING_ID"

	// CodeIDNotString indicates the "id" field is not a string.
	CodeIDNotString ValidationCode = "ID_NOT_STRING"

	// CodeMissingValue indicates a record has no "value" field.
	CodeMissingValue ValidationCode = "MISSING_VALUE"

	// CodeValueNotString indicates a scalar-shaped record carries a non-string value.
	CodeValueNotString ValidationCode = "VALUE_NOT_STRING"

	// CodeValueNotStructured indicates a value that cannot be represented as JSON data.
	CodeValueNotStructured ValidationCode = "VALUE_NOT_STRUCTURED"

	// CodeEmptyContainer indicates a container value with no sub-entries.
	CodeEmptyContainer ValidationCode = "EMPTY_CONTAINER"

	// CodeInvalidSubEntry indicates a container sub-entry that is not scalar-shaped.
	CodeInvalidSubEntry ValidationCode = "INVALID_SUB_ENTRY"
)

// ValidationError reports why a Record could not become an Entry.
//
// Index is the position of the offending item in a batch or container,
// or -1 when the failure is not positional.
type ValidationError struct {
	Code    ValidationCode
	Field   string
	Index   int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (index=%d)", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AtIndex returns a copy of e positioned at index i.
func (e *ValidationError) AtIndex(i int) *ValidationError {
	out := *e
	out.Index = i
	return &out
}

func newValidationError(code ValidationCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Index:   -1,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError returns true if err is or wraps a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CodeOf extracts the ValidationCode from err, or "" if err is not a
// ValidationError.
func CodeOf(err error) ValidationCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}
