package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownProvider is matched by every UnknownProviderError.
var ErrUnknownProvider = errors.New("unknown provider")

// UnknownProviderError is raised when a provider name is outside the known set.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

func (e *UnknownProviderError) Is(target error) bool {
	return target == ErrUnknownProvider
}

// ValidationError reports a missing field or an inconsistent provider/field combination.
// It is always detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError means the inventory service answered with a non-success status.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("inventory service returned %d: %s", e.StatusCode, msg)
}

// NotFound reports whether the remote side said the entity does not exist.
func (e *RemoteError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// TransportError means the request could not be completed at all: network failure,
// unreadable or malformed response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message renders any error from the taxonomy as a short user-facing line.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	var rErr *RemoteError
	var tErr *TransportError

	switch {
	case errors.As(err, &vErr):
		return fmt.Sprintf("%s %s", vErr.Field, vErr.Reason)
	case errors.As(err, &rErr):
		if rErr.Message != "" {
			return rErr.Message
		}
		return http.StatusText(rErr.StatusCode)
	case errors.As(err, &tErr):
		return "the model inventory could not be reached, please try again"
	default:
		return err.Error()
	}
}

// IsNotFound reports whether err is a RemoteError carrying a 404.
func IsNotFound(err error) bool {
	var rErr *RemoteError
	return errors.As(err, &rErr) && rErr.NotFound()
}
