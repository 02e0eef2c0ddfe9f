package session

import (
	"fmt"
	"time"

	"github.com/muurk/btscan/internal/discovery"
)

// State is the lifecycle state of a discovery session.
type State int

const (
	Idle State = iota
	AwaitingAdapterEnable
	AwaitingPermission
	Scanning
	Stopped
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingAdapterEnable:
		return "AwaitingAdapterEnable"
	case AwaitingPermission:
		return "AwaitingPermission"
	case Scanning:
		return "Scanning"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Awaiting reports whether the session is waiting on a capability answer
func (s State) Awaiting() bool {
	return s == AwaitingAdapterEnable || s == AwaitingPermission
}

// Status is the terminal status of a finished scan.
type Status int

const (
	NoDevicesFound Status = iota
	ReadyWithResults
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case NoDevicesFound:
		return "NoDevicesFound"
	case ReadyWithResults:
		return "ReadyWithResults"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Cause records what ended a scan.
type Cause int

const (
	CauseManual Cause = iota
	CauseTimeout
	CauseShutdown
)

// String returns the cause name
func (c Cause) String() string {
	switch c {
	case CauseManual:
		return "Manual"
	case CauseTimeout:
		return "Timeout"
	case CauseShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Cause(%d)", int(c))
	}
}

// Result describes a finished scan.
type Result struct {
	Status     Status
	Cause      Cause
	Devices    []discovery.Device
	Generation uint64
	Elapsed    time.Duration
}

// Stats are diagnostic counters kept by the controller.
type Stats struct {
	// Received counts device-found events processed by the loop
	Received uint64
	// Accepted counts events that added a new device
	Accepted uint64
	// Duplicates counts events for an address already in the registry
	Duplicates uint64
	// Discarded counts events dropped because no scan was running
	Discarded uint64
	// Scans counts scans that entered the Scanning state
	Scans uint64
}
