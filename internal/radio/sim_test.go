package radio

import (
	"testing"
	"time"

	"github.com/muurk/btscan/internal/config"
)

func TestSimEmitsRoundRobin(t *testing.T) {
	devices := []config.SimDevice{
		{Address: "AA:11", Name: "Phone", RSSI: -55, Paired: true},
		{Address: "BB:22", RSSI: -85},
	}
	s := NewSim(devices, time.Millisecond)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.Discovering() {
		t.Error("Discovering() = false after Start")
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	wantAddrs := []string{"AA:11", "BB:22", "AA:11"}
	for i, want := range wantAddrs {
		select {
		case ev := <-s.Events():
			if ev.Address != want {
				t.Errorf("event %d address = %q, want %q", i, ev.Address, want)
			}
			if ev.Source != SourceSim {
				t.Errorf("event %d source = %q, want %q", i, ev.Source, SourceSim)
			}
			base := devices[i%2].RSSI
			if ev.RSSI < base-rssiJitter || ev.RSSI > base+rssiJitter {
				t.Errorf("event %d RSSI = %d, outside %d±%d", i, ev.RSSI, base, rssiJitter)
			}
			if ev.Bonded != devices[i%2].Paired {
				t.Errorf("event %d Bonded = %v", i, ev.Bonded)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no event %d", i)
		}
	}

	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if s.Discovering() {
		t.Error("Discovering() = true after Cancel")
	}
	if err := s.Cancel(); err != nil {
		t.Errorf("second Cancel() error = %v", err)
	}

	// restart after cancel is allowed
	if err := s.Start(); err != nil {
		t.Errorf("restart error = %v", err)
	}
	_ = s.Cancel()
}

func TestSimRejectsBadInterval(t *testing.T) {
	s := NewSim(nil, 0)
	if err := s.Start(); err == nil {
		t.Error("Start() with zero interval should fail")
	}
}
