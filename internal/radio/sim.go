package radio

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/muurk/btscan/internal/config"
	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
)

// SourceSim tags events reported by the simulator.
const SourceSim = "sim"

// rssiJitter is the +/- spread applied to simulated readings.
const rssiJitter = 3

// Sim is a DiscoverySource that replays a fixed device list, one sighting per
// interval, round-robin with jittered RSSI. Repeats exercise deduplication.
type Sim struct {
	devices  []config.SimDevice
	interval time.Duration
	events   chan discovery.DeviceFoundEvent

	mu          sync.Mutex
	rng         *rand.Rand
	stop        chan struct{}
	discovering bool
}

// NewSim creates a simulator for the given devices.
func NewSim(devices []config.SimDevice, interval time.Duration) *Sim {
	now := uint64(time.Now().UnixNano())
	return &Sim{
		devices:  devices,
		interval: interval,
		events:   make(chan discovery.DeviceFoundEvent, eventBuffer),
		rng:      rand.New(rand.NewPCG(now, now>>7)),
	}
}

// Events implements session.DiscoverySource
func (s *Sim) Events() <-chan discovery.DeviceFoundEvent {
	return s.events
}

// Discovering implements session.DiscoverySource
func (s *Sim) Discovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discovering
}

// Start begins emitting sightings.
func (s *Sim) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovering {
		return errors.New("sim: already discovering")
	}
	if s.interval <= 0 {
		return errors.New("sim: interval must be positive")
	}
	s.stop = make(chan struct{})
	s.discovering = true
	go s.run(s.stop)
	logging.Debug("Simulated discovery started")
	return nil
}

// Cancel stops emitting. It is a no-op when not discovering.
func (s *Sim) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.discovering {
		return nil
	}
	close(s.stop)
	s.discovering = false
	return nil
}

func (s *Sim) run(stop <-chan struct{}) {
	if len(s.devices) == 0 {
		<-stop
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ev := s.sighting(s.devices[i%len(s.devices)])
			select {
			case s.events <- ev:
			case <-stop:
				return
			}
		}
	}
}

func (s *Sim) sighting(d config.SimDevice) discovery.DeviceFoundEvent {
	s.mu.Lock()
	jitter := s.rng.IntN(2*rssiJitter+1) - rssiJitter
	s.mu.Unlock()
	return discovery.DeviceFoundEvent{
		Address: d.Address,
		Name:    d.Name,
		RSSI:    d.RSSI + jitter,
		Bonded:  d.Paired,
		Source:  SourceSim,
	}
}
