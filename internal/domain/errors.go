package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrAuthExpired        = errors.New("session expired")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrDecodeFailed       = errors.New("malformed response")
	ErrCancelled          = errors.New("cancelled")
	ErrNotFound           = errors.New("not found")
)

// RemoteError carries a non-2xx response from the service, including the
// server-provided detail message when one was present.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote rejected request with status %d", e.Status)
	}
	return fmt.Sprintf("remote rejected request with status %d: %s", e.Status, e.Message)
}
