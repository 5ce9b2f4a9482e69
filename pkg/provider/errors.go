package provider

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by UpdateTask and DeleteTask when the target
// task no longer exists on the backend.
var ErrNotFound = errors.New("task not found")

// UnavailableError indicates a transient failure talking to a backend:
// network error, timeout, or a 5xx response. The engine aborts the fetch
// phase on it and retries on the next cycle.
type UnavailableError struct {
	Provider string
	Status   int
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s unavailable: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError indicates the backend rejected a specific request (4xx
// validation). The failing task stays unsynced for retry next cycle; the
// rest of the cycle proceeds.
type RejectedError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request: status %d: %s", e.Provider, e.Status, e.Detail)
}

// CredentialError indicates authentication failed and a refresh did not
// (or cannot) fix it. The cycle aborts; this needs operator attention.
type CredentialError struct {
	Provider string
	Err      error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credentials invalid: %v", e.Provider, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is a transient backend failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// IsCredential reports whether err is an authentication failure.
func IsCredential(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}
