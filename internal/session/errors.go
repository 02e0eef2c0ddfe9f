package session

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a failed scan attempt
type ErrorKind int

const (
	// KindRadioUnavailable means the host has no discovery capability at all.
	// It is permanent for the lifetime of the controller.
	KindRadioUnavailable ErrorKind = iota
	// KindAdapterDisabled means the radio is off and was not turned on
	KindAdapterDisabled
	// KindPermissionDenied means the capability to scan was not granted
	KindPermissionDenied
	// KindDiscoveryFailed means the discovery source refused to start
	KindDiscoveryFailed
)

// Sentinel errors for errors.Is checks against *Error values.
var (
	ErrRadioUnavailable = errors.New("radio unavailable")
	ErrAdapterDisabled  = errors.New("adapter disabled")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDiscoveryFailed  = errors.New("discovery failed")

	// ErrClosed is returned by Run after the controller has been shut down
	ErrClosed = errors.New("session: controller closed")
	// ErrAlreadyRunning is returned by a second concurrent call to Run
	ErrAlreadyRunning = errors.New("session: controller already running")
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindRadioUnavailable:
		return "RadioUnavailable"
	case KindAdapterDisabled:
		return "AdapterDisabled"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindDiscoveryFailed:
		return "DiscoveryFailed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindRadioUnavailable:
		return ErrRadioUnavailable
	case KindAdapterDisabled:
		return ErrAdapterDisabled
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindDiscoveryFailed:
		return ErrDiscoveryFailed
	default:
		return nil
	}
}

// Error is a failed scan attempt. It is terminal to the attempt only.
type Error struct {
	Kind    ErrorKind // Category of error
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Retryable reports whether a later Start may succeed
func (e *Error) Retryable() bool {
	return e.Kind != KindRadioUnavailable
}
