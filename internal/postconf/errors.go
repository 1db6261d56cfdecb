package postconf

import (
	"errors"
	"fmt"
)

// Error represents a failure while reading or writing Postfix
// configuration through postconf.
//
// The Code distinguishes the failure classes callers care about:
//   - Format: postconf produced output we cannot parse. Always fatal,
//     never retried; it indicates an incompatible postconf version.
//   - Query: a read invocation failed.
//   - Commit: the batched edit invocation failed. Staged pairs are kept
//     so the caller may retry the whole flush.
//   - MissingExecutable: the configured tool is not on PATH.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Param is the configuration parameter involved, if any.
	Param string

	// Output is the raw postconf output for format errors.
	Output string

	// Err is the underlying cause (usually a subprocess exit error).
	Err error
}

// ErrorCode categorizes adapter errors.
type ErrorCode string

const (
	// ErrCodeFormat indicates unparsable postconf output.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"

	// ErrCodeQuery indicates a failed read invocation.
	ErrCodeQuery ErrorCode = "QUERY_ERROR"

	// ErrCodeCommit indicates a failed edit invocation.
	ErrCodeCommit ErrorCode = "COMMIT_ERROR"

	// ErrCodeMissingExecutable indicates the tool was not found.
	ErrCodeMissingExecutable ErrorCode = "MISSING_EXECUTABLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (parameter=%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err is an adapter format error.
// Uses errors.As to handle wrapped errors.
func IsFormatError(err error) bool {
	return hasCode(err, ErrCodeFormat)
}

// IsQueryError reports whether err is an adapter query error.
func IsQueryError(err error) bool {
	return hasCode(err, ErrCodeQuery)
}

// IsCommitError reports whether err is an adapter commit error.
func IsCommitError(err error) bool {
	return hasCode(err, ErrCodeCommit)
}

// IsMissingExecutableError reports whether err indicates a missing tool.
func IsMissingExecutableError(err error) bool {
	return hasCode(err, ErrCodeMissingExecutable)
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// NewQueryError creates a query error for the given parameter.
// Exported for collaborators (version probing) that parse values
// obtained through this adapter.
func NewQueryError(param, message string, err error) *Error {
	return &Error{
		Code:    ErrCodeQuery,
		Message: message,
		Param:   param,
		Err:     err,
	}
}
