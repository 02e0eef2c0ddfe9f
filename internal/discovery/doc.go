// Package discovery holds the device model and the device registry used by a
// discovery session.
//
// A discovery backend reports raw sightings as DeviceFoundEvent values. The
// session feeds them to a Registry, which keeps exactly one entry per address
// in first-seen order:
//
//	reg := discovery.NewRegistry(discovery.FirstSeenWins)
//	reg.OnChange(func(devices []discovery.Device) {
//	    render(devices)
//	})
//
//	reg.Accept(discovery.DeviceFoundEvent{Address: "AA:11", Name: "Phone", RSSI: -55, Bonded: true})
//	reg.Accept(discovery.DeviceFoundEvent{Address: "AA:11", RSSI: -90}) // discarded
//
// # Dedup Policy
//
// Identity is the address alone. Under FirstSeenWins (the default) a repeated
// sighting is discarded: the stored name, signal strength and bond state keep
// the values from the first acceptance. LatestReading is an opt-in variant
// that refreshes name and signal strength in place without changing order.
//
// # mDNS
//
// MDNSSource browses a DNS-SD service type with zeroconf and reports each
// resolved host as a sighting. It has no signal measurement and reports
// signal.Unknown.
//
// # Thread Safety
//
// Registry is owned by a single goroutine (the session event loop) and is not
// safe for concurrent use. MDNSSource is safe for concurrent use.
package discovery
