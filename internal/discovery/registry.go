package discovery

import (
	"fmt"
	"time"
)

// DedupPolicy decides what happens when an address is sighted again.
type DedupPolicy int

const (
	// FirstSeenWins keeps the first accepted reading and discards repeats.
	FirstSeenWins DedupPolicy = iota

	// LatestReading updates name and RSSI of an existing entry in place.
	// Order and bond state are unchanged.
	LatestReading
)

// String returns the config spelling of the policy
func (p DedupPolicy) String() string {
	switch p {
	case FirstSeenWins:
		return "first-seen"
	case LatestReading:
		return "latest"
	default:
		return fmt.Sprintf("DedupPolicy(%d)", int(p))
	}
}

// ParseDedupPolicy parses the config spelling of a policy.
// An empty string selects FirstSeenWins.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch s {
	case "", "first-seen":
		return FirstSeenWins, nil
	case "latest":
		return LatestReading, nil
	default:
		return FirstSeenWins, fmt.Errorf("unknown dedup policy %q (expected first-seen or latest)", s)
	}
}

// ChangeFunc receives a fresh snapshot whenever the registry contents change.
type ChangeFunc func(devices []Device)

// Registry is an ordered, deduplicated store of discovered devices keyed by
// address. It is owned by a single goroutine and is not safe for concurrent use.
type Registry struct {
	policy  DedupPolicy
	devices []Device
	index   map[string]int // address -> position in devices
	order   uint64
	now     func() time.Time

	onChange []ChangeFunc
}

// NewRegistry creates an empty registry using the given dedup policy
func NewRegistry(policy DedupPolicy) *Registry {
	return &Registry{
		policy: policy,
		index:  make(map[string]int),
		now:    time.Now,
	}
}

// Policy returns the dedup policy in effect
func (r *Registry) Policy() DedupPolicy {
	return r.policy
}

// OnChange registers a callback invoked after every change.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.onChange = append(r.onChange, fn)
}

// Accept ingests a sighting. It returns the stored entry and whether the
// registry changed. Under FirstSeenWins a repeated address is discarded and
// the existing entry is returned untouched.
func (r *Registry) Accept(ev DeviceFoundEvent) (Device, bool) {
	if i, ok := r.index[ev.Address]; ok {
		if r.policy != LatestReading {
			return r.devices[i], false
		}
		existing := &r.devices[i]
		if existing.RSSI == ev.RSSI && (ev.Name == "" || existing.Name == ev.Name) {
			return *existing, false
		}
		existing.RSSI = ev.RSSI
		if ev.Name != "" {
			existing.Name = ev.Name
		}
		r.notify()
		return *existing, true
	}

	r.order++
	d := deviceFromEvent(ev, r.order, r.now())
	r.index[d.Address] = len(r.devices)
	r.devices = append(r.devices, d)
	r.notify()
	return d, true
}

// Snapshot returns the entries ordered by first sighting. The slice is a copy.
func (r *Registry) Snapshot() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Lookup returns the entry for an address
func (r *Registry) Lookup(address string) (Device, bool) {
	i, ok := r.index[address]
	if !ok {
		return Device{}, false
	}
	return r.devices[i], true
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.devices)
}

// Clear empties the registry and resets the order counter.
func (r *Registry) Clear() {
	r.devices = nil
	r.index = make(map[string]int)
	r.order = 0
	r.notify()
}

func (r *Registry) notify() {
	if len(r.onChange) == 0 {
		return
	}
	for _, fn := range r.onChange {
		fn(r.Snapshot())
	}
}
