package discovery

import (
	"fmt"
	"time"

	"github.com/muurk/btscan/internal/signal"
)

// UnknownName is shown for devices that did not advertise a name.
const UnknownName = "Unknown Device"

// DeviceFoundEvent is one raw sighting reported by a discovery source.
type DeviceFoundEvent struct {
	// Address is the stable identity of the remote endpoint (e.g. "AA:BB:CC:DD:EE:FF")
	Address string

	// Name is the advertised name; empty when the device did not report one
	Name string

	// RSSI is the received signal strength in dBm (signal.Unknown if not measured)
	RSSI int

	// Bonded reports whether a trust relationship already exists with the host
	Bonded bool

	// Source names the backend that produced the event (e.g. "bluez", "mdns")
	Source string
}

// Device is a discovered radio endpoint as held by the Registry.
type Device struct {
	// Address is the sole identity key
	Address string

	// Name is the advertised name at first acceptance (empty if absent)
	Name string

	// RSSI is the most recent accepted reading
	RSSI int

	// Paired is the bond state at first acceptance
	Paired bool

	// Order is the first-seen sequence number, starting at 1 for each scan
	Order uint64

	// DiscoveredAt is when the device was first accepted
	DiscoveredAt time.Time

	// Source names the backend that first reported the device
	Source string
}

// DisplayName returns the advertised name or the UnknownName placeholder
func (d Device) DisplayName() string {
	if d.Name == "" {
		return UnknownName
	}
	return d.Name
}

// Bucket returns the coarse signal category of the device
func (d Device) Bucket() signal.Bucket {
	return signal.Classify(d.RSSI)
}

// Quality returns the textual signal description of the device
func (d Device) Quality() signal.Quality {
	return signal.Describe(d.RSSI)
}

// FormattedRSSI renders the reading with its quality, e.g. "-55 dBm (Excellent)"
func (d Device) FormattedRSSI() string {
	return fmt.Sprintf("%s (%s)", signal.Format(d.RSSI), d.Quality())
}

// PairedLabel returns "Paired" or "Not Paired"
func (d Device) PairedLabel() string {
	if d.Paired {
		return "Paired"
	}
	return "Not Paired"
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("%s [%s] %s", d.DisplayName(), d.Address, signal.Format(d.RSSI))
}

// deviceFromEvent builds a registry entry from a sighting.
func deviceFromEvent(ev DeviceFoundEvent, order uint64, now time.Time) Device {
	return Device{
		Address:      ev.Address,
		Name:         ev.Name,
		RSSI:         ev.RSSI,
		Paired:       ev.Bonded,
		Order:        order,
		DiscoveredAt: now,
		Source:       ev.Source,
	}
}
