package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the request could not be sent or the connection failed.
	ErrTransport = errors.New("backend: transport error")

	// ErrInvalidResponse is returned when the response body could not be decoded.
	ErrInvalidResponse = errors.New("backend: invalid response")
)

// StatusError reports a non-success HTTP status from a read endpoint.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}
