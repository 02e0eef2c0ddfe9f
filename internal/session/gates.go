package session

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/btscan/internal/discovery"
)

// EnableResult is the answer to an adapter enable request.
type EnableResult int

const (
	EnableGranted EnableResult = iota
	EnableDeclined
	EnableUnsupported
)

// String returns the result name
func (r EnableResult) String() string {
	switch r {
	case EnableGranted:
		return "granted"
	case EnableDeclined:
		return "declined"
	case EnableUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("EnableResult(%d)", int(r))
	}
}

// PermissionResult is the answer to a capability request.
type PermissionResult int

const (
	PermissionGranted PermissionResult = iota
	PermissionDenied
)

// String returns the result name
func (r PermissionResult) String() string {
	switch r {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return fmt.Sprintf("PermissionResult(%d)", int(r))
	}
}

// AdapterGate reports and changes the power state of the radio.
type AdapterGate interface {
	// Available reports whether the host has a radio at all.
	Available() bool
	// Enabled reports whether the radio is powered on.
	Enabled() bool
	// RequestEnable asks for the radio to be turned on. It may block on user
	// interaction; the controller calls it off the event loop.
	RequestEnable(ctx context.Context) (EnableResult, error)
}

// PermissionGate reports and requests the capability to scan.
type PermissionGate interface {
	// HasCapability reports whether scanning is currently allowed.
	HasCapability() bool
	// RequestCapability asks for the capability. It may block on user
	// interaction; the controller calls it off the event loop.
	RequestCapability(ctx context.Context) (PermissionResult, error)
}

// DiscoverySource is the radio discovery mechanism.
type DiscoverySource interface {
	// Start begins discovery and returns without waiting for results.
	Start() error
	// Cancel stops discovery. It is a no-op when not discovering.
	Cancel() error
	// Discovering reports whether a discovery is in progress.
	Discovering() bool
	// Events is the stream of sightings. It must return the same channel for
	// the lifetime of the source. Events may keep arriving after Cancel.
	Events() <-chan discovery.DeviceFoundEvent
}

// Timer arms one-shot timeouts.
type Timer interface {
	// Arm calls fire once after d unless the returned cancel func is called
	// first. cancel reports whether it prevented the call.
	Arm(d time.Duration, fire func()) (cancel func() bool)
}

// SystemTimer arms timeouts on the wall clock.
type SystemTimer struct{}

// Arm implements Timer with time.AfterFunc
func (SystemTimer) Arm(d time.Duration, fire func()) func() bool {
	t := time.AfterFunc(d, fire)
	return t.Stop
}
