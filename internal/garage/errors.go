package garage

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input: missing interval configuration,
// a non-positive derived interval, or a disallowed odometer decrease. It is
// surfaced directly to the caller and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "garage: invalid input: " + e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a resource that does not exist within the requesting
// user's scope. Ownership failures and true misses look identical so that
// the existence of other users' data is never leaked.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("garage: %s %d not found", e.Resource, e.ID)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}
