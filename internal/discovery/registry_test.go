package discovery

import (
	"testing"
	"time"
)

func ev(addr string, rssi int) DeviceFoundEvent {
	return DeviceFoundEvent{Address: addr, RSSI: rssi}
}

func TestRegistry_DedupByAddress(t *testing.T) {
	tests := []struct {
		name   string
		events []DeviceFoundEvent
		want   int
	}{
		{"empty", nil, 0},
		{"distinct", []DeviceFoundEvent{ev("A", -50), ev("B", -60), ev("C", -70)}, 3},
		{"all same", []DeviceFoundEvent{ev("A", -50), ev("A", -60), ev("A", -70)}, 1},
		{"interleaved", []DeviceFoundEvent{ev("A", -50), ev("B", -60), ev("A", -70), ev("C", -1), ev("B", -2)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(FirstSeenWins)
			for _, e := range tt.events {
				r.Accept(e)
			}
			if r.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", r.Len(), tt.want)
			}
			seen := map[string]bool{}
			for _, d := range r.Snapshot() {
				if seen[d.Address] {
					t.Errorf("duplicate address %q in snapshot", d.Address)
				}
				seen[d.Address] = true
			}
		})
	}
}

func TestRegistry_FirstSeenWins(t *testing.T) {
	r := NewRegistry(FirstSeenWins)

	r.Accept(DeviceFoundEvent{Address: "A", Name: "Phone", RSSI: -55, Bonded: true})
	got, changed := r.Accept(DeviceFoundEvent{Address: "A", Name: "Renamed", RSSI: -90, Bonded: false})

	if changed {
		t.Error("Accept() of duplicate reported a change")
	}
	if got.RSSI != -55 || got.Name != "Phone" || !got.Paired {
		t.Errorf("existing entry was modified: %+v", got)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_LatestReading(t *testing.T) {
	r := NewRegistry(LatestReading)

	r.Accept(DeviceFoundEvent{Address: "A", Name: "Phone", RSSI: -55, Bonded: true})
	r.Accept(ev("B", -70))
	got, changed := r.Accept(DeviceFoundEvent{Address: "A", RSSI: -90, Bonded: false})

	if !changed {
		t.Error("Accept() with new reading should report a change")
	}
	if got.RSSI != -90 {
		t.Errorf("RSSI = %d, want -90", got.RSSI)
	}
	if got.Name != "Phone" {
		t.Errorf("Name = %q, absent name should not erase existing", got.Name)
	}
	if !got.Paired {
		t.Error("Paired should keep first-acceptance value")
	}
	if got.Order != 1 {
		t.Errorf("Order = %d, want 1", got.Order)
	}

	if _, changed := r.Accept(DeviceFoundEvent{Address: "A", RSSI: -90}); changed {
		t.Error("identical reading should not report a change")
	}
}

func TestRegistry_OrderPreservation(t *testing.T) {
	r := NewRegistry(FirstSeenWins)
	for _, e := range []DeviceFoundEvent{ev("C", -1), ev("A", -2), ev("C", -3), ev("B", -4), ev("A", -5)} {
		r.Accept(e)
	}

	snap := r.Snapshot()
	wantAddrs := []string{"C", "A", "B"}
	if len(snap) != len(wantAddrs) {
		t.Fatalf("len(snapshot) = %d, want %d", len(snap), len(wantAddrs))
	}
	for i, d := range snap {
		if d.Address != wantAddrs[i] {
			t.Errorf("snapshot[%d].Address = %q, want %q", i, d.Address, wantAddrs[i])
		}
		if d.Order != uint64(i+1) {
			t.Errorf("snapshot[%d].Order = %d, want %d", i, d.Order, i+1)
		}
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry(FirstSeenWins)
	r.Accept(ev("A", -50))

	snap := r.Snapshot()
	snap[0].RSSI = 0

	d, ok := r.Lookup("A")
	if !ok || d.RSSI != -50 {
		t.Errorf("registry entry changed through snapshot: %+v", d)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_ClearResetsOrder(t *testing.T) {
	r := NewRegistry(FirstSeenWins)
	r.Accept(ev("A", -50))
	r.Accept(ev("B", -50))
	r.Clear()

	if r.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d", r.Len())
	}
	if _, ok := r.Lookup("A"); ok {
		t.Error("Lookup(A) after Clear() should fail")
	}

	d, _ := r.Accept(ev("B", -40))
	if d.Order != 1 {
		t.Errorf("Order after Clear() = %d, want 1", d.Order)
	}
}

func TestRegistry_OnChange(t *testing.T) {
	r := NewRegistry(FirstSeenWins)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	var calls [][]Device
	r.OnChange(func(devices []Device) {
		calls = append(calls, devices)
	})

	r.Accept(ev("A", -50))
	r.Accept(ev("A", -40)) // discarded, no notification
	r.Accept(ev("B", -60))
	r.Clear()

	if len(calls) != 3 {
		t.Fatalf("OnChange called %d times, want 3", len(calls))
	}
	if len(calls[0]) != 1 || len(calls[1]) != 2 || len(calls[2]) != 0 {
		t.Errorf("unexpected snapshot sizes: %d, %d, %d", len(calls[0]), len(calls[1]), len(calls[2]))
	}
	if !calls[1][0].DiscoveredAt.Equal(fixed) {
		t.Errorf("DiscoveredAt = %v, want %v", calls[1][0].DiscoveredAt, fixed)
	}
}

func TestParseDedupPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DedupPolicy
		wantErr bool
	}{
		{"", FirstSeenWins, false},
		{"first-seen", FirstSeenWins, false},
		{"latest", LatestReading, false},
		{"newest", FirstSeenWins, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDedupPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDedupPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDedupPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && tt.in != "" && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}
