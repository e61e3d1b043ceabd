// Package service hosts the mutation coordinator: the only component
// that writes entity state. This file defines the error taxonomy the
// coordinator surfaces to the transport layer.
package service

import (
	"errors"
	"fmt"
)

// DeniedError is returned when the authorization engine rejects the
// request. Hidden denials must surface as not-found so the existence
// of private events never leaks.
type DeniedError struct {
	Reason string
	Hidden bool
}

func (e *DeniedError) Error() string { return "denied: " + e.Reason }

// ValidationError is returned when a domain invariant is violated
// before any write. Field names the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrConflict is returned when a concurrent uniqueness race persists
// after the internal retry. Safe for the client to repeat the request.
var ErrConflict = errors.New("conflicting concurrent write")

// AsDenied unwraps err as a DeniedError if it is one.
func AsDenied(err error) (*DeniedError, bool) {
	var d *DeniedError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// AsValidation unwraps err as a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
