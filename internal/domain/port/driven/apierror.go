package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors for the API error taxonomy. Match with errors.Is against any
// error returned by a driven API port.
var (
	// ErrNetwork covers transport-level failures: unreachable host, timeout, cancellation.
	ErrNetwork = errors.New("network error")
	// ErrSessionExpired means authorization failed and could not be recovered by refresh.
	// Callers should send the user back to login.
	ErrSessionExpired = errors.New("session expired")
	// ErrValidation covers 4xx responses other than 401, and payloads rejected locally.
	ErrValidation = errors.New("validation error")
	// ErrServer covers 5xx responses.
	ErrServer = errors.New("server error")
)

// ErrorKind classifies an APIError.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindSessionExpired
	KindValidation
	KindServer
)

// String returns the kind's sentinel message.
func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindSessionExpired:
		return ErrSessionExpired
	case KindValidation:
		return ErrValidation
	case KindServer:
		return ErrServer
	default:
		return ErrNetwork
	}
}

// APIError is the error type returned by API adapters. StatusCode is 0 for
// network errors and for validation failures detected before sending.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string // Server-provided detail, safe to show to the user.
	Method     string
	Path       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Kind.String()
	if e.Method != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *APIError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// UserMessage returns a short message suitable for a non-fatal, local error
// display: the server detail when there is one, the kind otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if apiErr != nil {
		return apiErr.Kind.String()
	}
	return err.Error()
}
