package policy

import (
	"errors"
	"fmt"
)

// WriteError indicates the policy table file could not be written. The
// atomic temp-and-rename write guarantees no partially-written table is
// ever observable when this error is returned.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("POLICY_WRITE_ERROR: writing policy table %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError reports whether err is a policy table write error.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// LoadError represents a failure loading or validating a policy
// document.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load error codes.
const (
	ErrCodeNotFound = "POLICY_NOT_FOUND" // document file missing/unreadable
	ErrCodeParse    = "POLICY_PARSE"     // document is not valid CUE
	ErrCodeInvalid  = "POLICY_INVALID"   // document violates the schema
)
