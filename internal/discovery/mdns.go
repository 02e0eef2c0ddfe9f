package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/signal"
)

const (
	// DefaultServiceType is the mDNS service type browsed when none is configured
	DefaultServiceType = "_http._tcp"

	// DefaultServiceDomain is the mDNS domain (typically "local.")
	DefaultServiceDomain = "local."

	// SourceMDNS tags events produced by MDNSSource
	SourceMDNS = "mdns"

	eventBuffer = 64
)

// MDNSSource discovers network-local devices by browsing an mDNS service type.
// mDNS carries no signal measurement, so every event reports signal.Unknown.
type MDNSSource struct {
	// Service is the mDNS service type to browse (e.g. "_http._tcp")
	Service string

	// Domain is the mDNS domain (e.g. "local.")
	Domain string

	events chan DeviceFoundEvent

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMDNSSource creates an mDNS source for the given service type and domain.
// Empty values select the defaults.
func NewMDNSSource(service, domain string) *MDNSSource {
	if service == "" {
		service = DefaultServiceType
	}
	if domain == "" {
		domain = DefaultServiceDomain
	}
	return &MDNSSource{
		Service: service,
		Domain:  domain,
		events:  make(chan DeviceFoundEvent, eventBuffer),
	}
}

// Events returns the stream of sightings. The channel lives as long as the source.
func (s *MDNSSource) Events() <-chan DeviceFoundEvent {
	return s.events
}

// Discovering reports whether a browse is in progress
func (s *MDNSSource) Discovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start begins browsing. It returns once the browse is running.
func (s *MDNSSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("mdns: browse already in progress")
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		for entry := range entries {
			ev, ok := parseServiceEntry(entry)
			if !ok {
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, s.Service, s.Domain, entries); err != nil {
		cancel()
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	s.cancel = cancel
	logging.Debug("mDNS browse started",
		zap.String("service", s.Service),
		zap.String("domain", s.Domain),
	)
	return nil
}

// Cancel stops the browse. Calling it when idle is a no-op.
func (s *MDNSSource) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	logging.Debug("mDNS browse canceled", zap.String("service", s.Service))
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a sighting.
// The identity is the hostname, falling back to the first address.
// Returns false if the entry carries no usable identity.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (DeviceFoundEvent, bool) {
	if entry == nil {
		return DeviceFoundEvent{}, false
	}

	address := strings.TrimSuffix(entry.HostName, ".")
	if address == "" {
		// Prefer IPv4
		for _, ip := range entry.AddrIPv4 {
			address = ip.String()
			break
		}
	}
	if address == "" && len(entry.AddrIPv6) > 0 {
		address = entry.AddrIPv6[0].String()
	}
	if address == "" {
		return DeviceFoundEvent{}, false
	}

	return DeviceFoundEvent{
		Address: address,
		Name:    entry.Instance,
		RSSI:    signal.Unknown,
		Source:  SourceMDNS,
	}, true
}
