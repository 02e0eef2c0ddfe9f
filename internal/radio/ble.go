package radio

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
)

// SourceBLE tags events reported by the BLE backend.
const SourceBLE = "ble"

// bleStopWait bounds how long Cancel waits for the adapter scan to return.
const bleStopWait = 5 * time.Second

// ErrScanNotStopped is returned by BLE.Cancel when the adapter scan keeps
// running after StopScan.
var ErrScanNotStopped = errors.New("radio: BLE scan did not stop")

// bleScanner is the part of *bluetooth.Adapter the backend drives.
type bleScanner interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// BLE scans for Bluetooth Low Energy advertisements through the platform
// stack (BlueZ, CoreBluetooth or WinRT). It cannot power the radio on and
// does not know bond state.
type BLE struct {
	adapter bleScanner
	events  chan discovery.DeviceFoundEvent

	enableOnce sync.Once
	enableErr  error

	// done is non-nil while a scan goroutine runs and is closed when it exits.
	mu   sync.Mutex
	done chan struct{}
}

// NewBLE uses the platform default adapter.
func NewBLE() *BLE {
	return newBLE(bluetooth.DefaultAdapter)
}

func newBLE(adapter bleScanner) *BLE {
	return &BLE{
		adapter: adapter,
		events:  make(chan discovery.DeviceFoundEvent, eventBuffer),
	}
}

func (b *BLE) enable() error {
	b.enableOnce.Do(func() {
		b.enableErr = b.adapter.Enable()
		if b.enableErr != nil {
			logging.Warn("BLE stack unavailable", zap.Error(b.enableErr))
		}
	})
	return b.enableErr
}

// Available implements session.AdapterGate
func (b *BLE) Available() bool {
	return b.enable() == nil
}

// Enabled reports the same as Available; the stack exposes no power state.
func (b *BLE) Enabled() bool {
	return b.enable() == nil
}

// RequestEnable implements session.AdapterGate
func (b *BLE) RequestEnable(context.Context) (session.EnableResult, error) {
	return session.EnableUnsupported, nil
}

// Events implements session.DiscoverySource
func (b *BLE) Events() <-chan discovery.DeviceFoundEvent {
	return b.events
}

// Discovering implements session.DiscoverySource
func (b *BLE) Discovering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

// Start runs the blocking adapter scan on its own goroutine.
func (b *BLE) Start() error {
	if err := b.enable(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.done != nil {
		b.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	go func() {
		err := b.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			b.report(result)
		})

		b.mu.Lock()
		if b.done == done {
			b.done = nil
		}
		b.mu.Unlock()
		close(done)

		if err != nil {
			logging.Warn("BLE scan ended with error", zap.Error(err))
		}
	}()
	logging.Debug("BLE scan started")
	return nil
}

// Cancel stops the adapter scan and waits for it to return, so a Start
// right after Cancel begins a fresh scan. It is a no-op when not discovering.
func (b *BLE) Cancel() error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return nil
	}

	if err := b.adapter.StopScan(); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-time.After(bleStopWait):
		return ErrScanNotStopped
	}
}

func (b *BLE) report(result bluetooth.ScanResult) {
	ev := discovery.DeviceFoundEvent{
		Address: result.Address.String(),
		Name:    result.LocalName(),
		RSSI:    int(result.RSSI),
		Source:  SourceBLE,
	}
	select {
	case b.events <- ev:
	default:
		logging.Warn("Dropping BLE sighting, event buffer full", zap.String("address", ev.Address))
	}
}
