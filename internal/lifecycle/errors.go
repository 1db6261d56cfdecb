package lifecycle

import (
	"errors"
	"fmt"
)

// Error represents a lifecycle failure.
//
// Restart errors mean a lifecycle subcommand (status excepted) failed:
// the service is broken or the control path is. Misconfiguration errors
// mean the configuration content failed the agent's own check; callers
// surface those as "fix your config" rather than "the service is
// broken". Unsupported-version errors abort activation entirely.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Step names the subcommand that failed, when one did.
	Step string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes lifecycle errors.
type ErrorCode string

const (
	// ErrCodeRestart indicates a start/stop/reload subcommand failed.
	ErrCodeRestart ErrorCode = "RESTART_ERROR"

	// ErrCodeMisconfiguration indicates the config check failed.
	ErrCodeMisconfiguration ErrorCode = "MISCONFIGURATION_ERROR"

	// ErrCodeUnsupportedVersion indicates the agent is too old.
	ErrCodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: %s (step=%s)", e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRestartError reports whether err is a lifecycle restart error.
func IsRestartError(err error) bool {
	return hasCode(err, ErrCodeRestart)
}

// IsMisconfigurationError reports whether err is a config check failure.
func IsMisconfigurationError(err error) bool {
	return hasCode(err, ErrCodeMisconfiguration)
}

// IsUnsupportedVersionError reports whether err is a version rejection.
func IsUnsupportedVersionError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedVersion)
}

func hasCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}
