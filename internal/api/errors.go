package api

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend reports that a resource
// does not exist (HTTP 404 or an explicit not-found body).
var ErrNotFound = errors.New("resource not found")

// TransportError wraps a transport-level failure: a network error, a
// timeout, or an HTTP status >= 400. The path identifies which call
// failed so callers can decide whether the step was critical.
type TransportError struct {
	Path   string
	Status int // 0 when the request never produced a response
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend request %s: status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("backend request %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
