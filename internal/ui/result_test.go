package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/urls"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		status  session.Status
		devices int
		want    string
	}{
		{session.NoDevicesFound, 0, "No devices found"},
		{session.ReadyWithResults, 1, "Ready (1 device)"},
		{session.ReadyWithResults, 3, "Ready (3 devices)"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.status, tt.devices); got != tt.want {
			t.Errorf("StatusText(%v, %d) = %q, want %q", tt.status, tt.devices, got, tt.want)
		}
	}
}

func TestRenderScanResult(t *testing.T) {
	found := RenderScanResult(session.Result{
		Status:  session.ReadyWithResults,
		Cause:   session.CauseTimeout,
		Devices: []discovery.Device{{Address: "AA:11"}, {Address: "BB:22"}},
		Elapsed: 15 * time.Second,
	}, 80)
	for _, want := range []string{"SCAN COMPLETE", "Ready (2 devices)", "timeout", "15s"} {
		if !strings.Contains(found, want) {
			t.Errorf("result box missing %q:\n%s", want, found)
		}
	}

	empty := RenderScanResult(session.Result{Status: session.NoDevicesFound, Cause: session.CauseManual}, 80)
	if !strings.Contains(empty, "NO DEVICES FOUND") || !strings.Contains(empty, "manual") {
		t.Errorf("empty result box:\n%s", empty)
	}
}

func TestRenderFailure(t *testing.T) {
	kinds := []session.ErrorKind{
		session.KindRadioUnavailable,
		session.KindAdapterDisabled,
		session.KindPermissionDenied,
		session.KindDiscoveryFailed,
	}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			if len(Troubleshooting(kind)) == 0 {
				t.Error("no troubleshooting tips")
			}
			out := RenderFailure(&session.Error{Kind: kind, Message: "boom"}, 80)
			if !strings.Contains(out, FailureTitle(kind)) || !strings.Contains(out, "Troubleshooting") {
				t.Errorf("failure box:\n%s", out)
			}
		})
	}
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader("Bluetooth scan", "btscan scan", []Detail{
		{"Backend", "sim"},
		{"Timeout", "15s"},
	}, 40)
	if !strings.Contains(out, "BLUETOOTH SCAN") || !strings.Contains(out, "btscan scan") {
		t.Errorf("header:\n%s", out)
	}
	if strings.Index(out, "Backend") > strings.Index(out, "Timeout") {
		t.Error("params should keep their order")
	}
}

func TestTroubleshootingLinks(t *testing.T) {
	tests := []struct {
		kind session.ErrorKind
		link string
	}{
		{session.KindRadioUnavailable, urls.BluetoothSetup},
		{session.KindAdapterDisabled, urls.BluetoothSetup},
		{session.KindDiscoveryFailed, urls.Issues},
	}
	for _, tt := range tests {
		tips := strings.Join(Troubleshooting(tt.kind), "\n")
		if !strings.Contains(tips, tt.link) {
			t.Errorf("%v tips missing %s", tt.kind, tt.link)
		}
	}
}
