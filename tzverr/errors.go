// Package tzverr defines the failure taxonomy for tz-validation.
//
// Every error surfaced by the document loader, the generator, the comparator
// or the CLI maps to exactly one FailureClass, which determines the process
// exit code. Comparison failures exit 1, malformed input exits 2, and
// internal faults exit 10.
package tzverr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	CLIUsage         FailureClass = "CLI_USAGE"
	InvalidConfig    FailureClass = "INVALID_CONFIG"
	InvalidDocument  FailureClass = "INVALID_DOCUMENT"
	Precondition     FailureClass = "PRECONDITION"
	HeaderMismatch   FailureClass = "HEADER_MISMATCH"
	ZoneMismatch     FailureClass = "ZONE_MISMATCH"
	ValidationFailed FailureClass = "VALIDATION_FAILED"
	UnknownZone      FailureClass = "UNKNOWN_ZONE"
	OracleFailure    FailureClass = "ORACLE_FAILURE"
	InternalIO       FailureClass = "INTERNAL_IO"
	InternalError    FailureClass = "INTERNAL_ERROR"
)

// Exit codes shared by every command.
const (
	ExitSuccess  = 0
	ExitFailed   = 1
	ExitInvalid  = 2
	ExitInternal = 10
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case InternalIO, InternalError:
		return ExitInternal
	case CLIUsage, InvalidConfig, InvalidDocument:
		return ExitInvalid
	default:
		return ExitFailed
	}
}

// Error is the structured error type for all tz-validation failures.
type Error struct {
	Class   FailureClass
	Zone    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Zone != "" {
		return fmt.Sprintf("tzverr: %s in zone %s: %s", e.Class, e.Zone, msg)
	}
	return fmt.Sprintf("tzverr: %s: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, message string) *Error {
	return &Error{Class: class, Message: message}
}

// Newf is New with a format string.
func Newf(class FailureClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, message string, cause error) *Error {
	return &Error{Class: class, Message: message, Cause: cause}
}

// ForZone returns a copy of e attributed to zone.
func (e *Error) ForZone(zone string) *Error {
	c := *e
	c.Zone = zone
	return &c
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when err carries no classification.
func ClassOf(err error) FailureClass {
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	return InternalError
}
