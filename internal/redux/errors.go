package redux

import (
	"errors"
	"fmt"
)

// Error is the typed error reported by reducers, the middleware pipeline,
// and the store.
//
// Code categories:
//   - INVALID_ARGUMENT: a reducer was handed an uninitialized state, or a
//     guard rejected an action. The dispatch is aborted without commit.
//   - CONFIGURATION_ERROR: the pipeline could not be built. Reported before
//     the first dispatch.
//   - MISSING_DEPENDENCY: a typed middleware asked the registry for a
//     dependency nobody provided.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Type names the unresolved dependency type (MISSING_DEPENDENCY).
	Type string

	// Requester names the middleware that asked for it.
	Requester string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a reducer or guard rejected its input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeConfiguration indicates a middleware pipeline misconfiguration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeMissingDependency indicates an unresolvable middleware dependency.
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Type != "" && e.Requester != "" {
		msg = fmt.Sprintf("%s (type=%s, requested by=%s)", msg, e.Type, e.Requester)
	} else if e.Requester != "" {
		msg = fmt.Sprintf("%s (middleware=%s)", msg, e.Requester)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidArgument creates an INVALID_ARGUMENT error.
func NewInvalidArgument(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewConfigurationError creates a CONFIGURATION_ERROR for a middleware.
func NewConfigurationError(requester, message string, cause error) *Error {
	return &Error{
		Code:      ErrCodeConfiguration,
		Message:   message,
		Requester: requester,
		Err:       cause,
	}
}

// NewMissingDependency creates a MISSING_DEPENDENCY error naming the
// unresolved type and the middleware that requested it.
func NewMissingDependency(typeName, requester string) *Error {
	return &Error{
		Code:      ErrCodeMissingDependency,
		Message:   "no service registered",
		Type:      typeName,
		Requester: requester,
	}
}

// IsInvalidArgument returns true if err is, or wraps, an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsConfigurationError returns true if err is, or wraps, a CONFIGURATION_ERROR.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsMissingDependency returns true if err is, or wraps, a MISSING_DEPENDENCY
// error. A configuration error caused by a missing dependency matches both.
func IsMissingDependency(err error) bool {
	for err != nil {
		var re *Error
		if !errors.As(err, &re) {
			return false
		}
		if re.Code == ErrCodeMissingDependency {
			return true
		}
		err = re.Err
	}
	return false
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
