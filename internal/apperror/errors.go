package apperror

import (
	"errors"
	"fmt"
)

// ValidationError indicates missing or malformed caller input. It maps to a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an absent session or document. It maps to a 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// UpstreamError wraps a failure of an external AI call. The wrapped error is
// logged internally; only SafeMessage may be shown to the caller.
type UpstreamError struct {
	Op          string
	SafeMessage string
	Err         error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func Upstream(op, safeMessage string, err error) error {
	return &UpstreamError{Op: op, SafeMessage: safeMessage, Err: err}
}

// ConsistencyError indicates a partially failed pipeline whose side effects
// were rolled back before the error surfaced.
type ConsistencyError struct {
	Op  string
	Err error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

func Consistency(op string, err error) error {
	return &ConsistencyError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

// SafeMessage returns the user-facing message for an upstream failure, or a
// generic fallback when the error carries none.
func SafeMessage(err error) string {
	var u *UpstreamError
	if errors.As(err, &u) && u.SafeMessage != "" {
		return u.SafeMessage
	}
	return "An internal error occurred. Please try again later."
}
