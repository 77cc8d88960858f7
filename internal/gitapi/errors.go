package gitapi

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports that the requested content, branch, or page does not
// exist. Whether this is user-visible depends on the caller: an explicit
// file path that is missing is an error, a missing README is not.
var ErrNotFound = errors.New("not found")

// BackendError is a 2xx response whose envelope carried status "error".
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return "backend error"
	}
	return "backend error: " + e.Message
}

// NetworkError is a transport-level failure: the request itself failed, the
// response was non-2xx, or the body was not JSON.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsCancelled reports whether err comes from a superseded or aborted
// request. Cancelled errors are swallowed by coordinators and never shown
// to the user.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
