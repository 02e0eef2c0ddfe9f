package discovery

import (
	"testing"
	"time"

	"github.com/muurk/btscan/internal/signal"
)

func TestDevice_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		device   Device
		expected string
	}{
		{
			name:     "advertised name",
			device:   Device{Name: "Phone"},
			expected: "Phone",
		},
		{
			name:     "absent name uses placeholder",
			device:   Device{},
			expected: UnknownName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.DisplayName(); got != tt.expected {
				t.Errorf("Device.DisplayName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_String(t *testing.T) {
	device := Device{Address: "AA:11", Name: "Phone", RSSI: -55}

	expected := "Phone [AA:11] -55 dBm"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_SignalHelpers(t *testing.T) {
	d := Device{RSSI: -85, Paired: false}

	if d.Bucket() != signal.Low {
		t.Errorf("Bucket() = %v, want Low", d.Bucket())
	}
	if d.Quality() != signal.Poor {
		t.Errorf("Quality() = %v, want Poor", d.Quality())
	}
	if got := d.FormattedRSSI(); got != "-85 dBm (Poor)" {
		t.Errorf("FormattedRSSI() = %q", got)
	}
	if d.PairedLabel() != "Not Paired" {
		t.Errorf("PairedLabel() = %q, want Not Paired", d.PairedLabel())
	}
	d.Paired = true
	if d.PairedLabel() != "Paired" {
		t.Errorf("PairedLabel() = %q, want Paired", d.PairedLabel())
	}
}

func TestDeviceFromEvent(t *testing.T) {
	now := time.Now()
	d := deviceFromEvent(DeviceFoundEvent{
		Address: "AA:11",
		Name:    "Phone",
		RSSI:    -55,
		Bonded:  true,
		Source:  "bluez",
	}, 7, now)

	if d.Address != "AA:11" || d.Name != "Phone" || d.RSSI != -55 || !d.Paired || d.Source != "bluez" {
		t.Errorf("deviceFromEvent() = %+v", d)
	}
	if d.Order != 7 {
		t.Errorf("Order = %d, want 7", d.Order)
	}
	if !d.DiscoveredAt.Equal(now) {
		t.Errorf("DiscoveredAt = %v, want %v", d.DiscoveredAt, now)
	}
}
