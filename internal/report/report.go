// Package report defines the JSON forms of session events shared by the
// MQTT publisher, the HTTP API and the scan command.
package report

import (
	"time"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/signal"
)

// Event types carried in Envelope.Type.
const (
	TypeSnapshot = "snapshot"
	TypeState    = "state"
	TypeDevices  = "devices"
	TypeScan     = "scan"
	TypeFailure  = "error"
)

// Device is the JSON form of a discovered device.
type Device struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	RSSI    *int   `json:"rssi,omitempty"`
	Signal  string `json:"signal,omitempty"`
	Quality string `json:"quality,omitempty"`
	Bars    int    `json:"bars,omitempty"`
	Paired  bool   `json:"paired"`
	Order   uint64 `json:"order"`
	Source  string `json:"source,omitempty"`
}

// State is sent on every state change.
type State struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceList is sent whenever the device list changes.
type DeviceList struct {
	Count     int       `json:"count"`
	Devices   []Device  `json:"devices"`
	Timestamp time.Time `json:"timestamp"`
}

// Scan is sent when a scan ends.
type Scan struct {
	Status     string    `json:"status"`
	Cause      string    `json:"cause"`
	Generation uint64    `json:"generation"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	Devices    []Device  `json:"devices"`
	Timestamp  time.Time `json:"timestamp"`
}

// Failure is sent when a scan attempt fails.
type Failure struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the current state and device list of a controller.
type Snapshot struct {
	State   string   `json:"state"`
	Count   int      `json:"count"`
	Devices []Device `json:"devices"`
}

// Envelope wraps an event for streams that carry several kinds.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewDevice converts a device. RSSI and its classifications are omitted
// when the backend reported no signal strength.
func NewDevice(d discovery.Device) Device {
	p := Device{
		Address: d.Address,
		Name:    d.DisplayName(),
		Paired:  d.Paired,
		Order:   d.Order,
		Source:  d.Source,
	}
	if d.RSSI != signal.Unknown {
		rssi := d.RSSI
		p.RSSI = &rssi
		p.Signal = d.Bucket().String()
		p.Quality = d.Quality().String()
		p.Bars = signal.Bars(d.RSSI)
	}
	return p
}

// NewDevices converts a device list, never returning nil.
func NewDevices(devices []discovery.Device) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, NewDevice(d))
	}
	return out
}

// NewState converts a state change.
func NewState(s session.State, now time.Time) State {
	return State{State: s.String(), Timestamp: now}
}

// NewDeviceList converts a device list change.
func NewDeviceList(devices []discovery.Device, now time.Time) DeviceList {
	return DeviceList{Count: len(devices), Devices: NewDevices(devices), Timestamp: now}
}

// NewScan converts a scan result.
func NewScan(r session.Result, now time.Time) Scan {
	return Scan{
		Status:     r.Status.String(),
		Cause:      r.Cause.String(),
		Generation: r.Generation,
		ElapsedMS:  r.Elapsed.Milliseconds(),
		Devices:    NewDevices(r.Devices),
		Timestamp:  now,
	}
}

// NewFailure converts a failed attempt.
func NewFailure(err *session.Error, now time.Time) Failure {
	return Failure{
		Kind:      err.Kind.String(),
		Message:   err.Error(),
		Retryable: err.Retryable(),
		Timestamp: now,
	}
}

// NewSnapshot captures the state and devices of a controller.
func NewSnapshot(s session.State, devices []discovery.Device) Snapshot {
	return Snapshot{State: s.String(), Count: len(devices), Devices: NewDevices(devices)}
}
