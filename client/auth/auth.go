package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired signals that the credential pair can no longer be renewed;
// callers are expected to send the user back to login.
var ErrSessionExpired = errors.New("session expired")

// NetworkError reports a transport level failure: no response was received.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SessionExpiredError is returned when a 401 could not be recovered because the
// refresh credential was absent or rejected. Response holds the original 401
// with its body still readable.
type SessionExpiredError struct {
	Response *http.Response
	Err      error
}

func (e *SessionExpiredError) Error() string {
	if e.Err == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%v: %v", ErrSessionExpired, e.Err)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// Is matches ErrSessionExpired.
func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

// IsSessionExpired reports whether err carries a session expiry.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
