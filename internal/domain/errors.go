package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrItemNotFound indicates the requested media item does not exist
	ErrItemNotFound = errors.New("media item not found")

	// ErrServerOffline indicates the media server is unreachable
	ErrServerOffline = errors.New("media server is unreachable")

	// ErrAuthFailed indicates the session is expired or invalid
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrUnexpectedKind indicates a typed getter found an item of another kind
	ErrUnexpectedKind = errors.New("item has unexpected kind")
)

// ServerError is a structured non-success response from the media server
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status %d - %s", e.StatusCode, e.Body)
}

// IsRemoteFailure reports whether err is a failure a degrade policy may
// absorb: transport, not found, or a structured server error.
// Authentication failures are never remote failures in this sense.
func IsRemoteFailure(err error) bool {
	if err == nil || errors.Is(err, ErrAuthFailed) {
		return false
	}
	var se *ServerError
	return errors.Is(err, ErrServerOffline) || errors.Is(err, ErrItemNotFound) || errors.As(err, &se)
}
