package storage

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a user or profile doesn't exist in the
// store. Absence of messages is not an error: ListMessages returns an
// empty slice.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return e.Resource + " not found: " + e.Key
}

// ValidationError rejects a request before it reaches the backend, such
// as an empty display name or empty message content.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// UnavailableError wraps a backend connection or initialization failure.
// At startup it triggers fallback store selection; at request time it
// surfaces to the route layer as a 500.
type UnavailableError struct {
	Err error
}

func (e UnavailableError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e UnavailableError) Unwrap() error {
	return e.Err
}

// PartialFailureError aggregates the per-record failures of a bulk clear
// where some deletions succeeded and some did not. Completed deletions
// are not rolled back; at-least-once deletion is the contract.
type PartialFailureError struct {
	Attempted int
	Failed    int
	Errs      []error
}

func (e PartialFailureError) Error() string {
	return fmt.Sprintf("cleared %d of %d messages: %v",
		e.Attempted-e.Failed, e.Attempted, errors.Join(e.Errs...))
}

func (e PartialFailureError) Unwrap() []error {
	return e.Errs
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
