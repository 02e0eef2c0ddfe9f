package radio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/signal"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"

	// SourceBlueZ tags events reported by the BlueZ backend.
	SourceBlueZ = "bluez"
)

// ErrNoBus is returned when the system D-Bus could not be reached.
var ErrNoBus = errors.New("radio: system bus unavailable")

// BlueZ drives a BlueZ adapter over the system D-Bus. It is both the
// AdapterGate and the DiscoverySource for the bluez backend, and reports
// Classic and LE devices with their bond state.
type BlueZ struct {
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	asker       Asker

	events  chan discovery.DeviceFoundEvent
	signals chan *dbus.Signal
	done    chan struct{}

	mu          sync.Mutex
	discovering bool
	devices     map[dbus.ObjectPath]map[string]dbus.Variant // last known Device1 properties
}

// NewBlueZ connects to the system bus and watches the adapter with the given
// id (e.g. "hci0"). Without a bus the backend reports the radio as unavailable.
func NewBlueZ(adapterID string, asker Asker) *BlueZ {
	b := newBlueZ(dbus.ObjectPath("/org/bluez/"+adapterID), asker)

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logging.Warn("System D-Bus unavailable", zap.Error(err))
		return b
	}
	b.conn = conn
	b.signals = make(chan *dbus.Signal, 64)
	conn.Signal(b.signals)
	for _, opts := range b.matchRules() {
		if err := conn.AddMatchSignal(opts...); err != nil {
			logging.Warn("Failed to add D-Bus match rule", zap.Error(err))
		}
	}
	go b.listen()
	return b
}

func newBlueZ(path dbus.ObjectPath, asker Asker) *BlueZ {
	return &BlueZ{
		adapterPath: path,
		asker:       asker,
		events:      make(chan discovery.DeviceFoundEvent, eventBuffer),
		done:        make(chan struct{}),
		devices:     make(map[dbus.ObjectPath]map[string]dbus.Variant),
	}
}

func (b *BlueZ) matchRules() [][]dbus.MatchOption {
	return [][]dbus.MatchOption{
		{dbus.WithMatchInterface(objManagerIface), dbus.WithMatchMember("InterfacesAdded")},
		{dbus.WithMatchInterface(propsIface), dbus.WithMatchMember("PropertiesChanged"), dbus.WithMatchPathNamespace(b.adapterPath)},
	}
}

func (b *BlueZ) adapter() dbus.BusObject {
	return b.conn.Object(bluezService, b.adapterPath)
}

// Available implements session.AdapterGate
func (b *BlueZ) Available() bool {
	if b.conn == nil {
		return false
	}
	if _, err := b.adapter().GetProperty(adapterIface + ".Address"); err != nil {
		logging.Debug("BlueZ adapter not found", zap.String("path", string(b.adapterPath)), zap.Error(err))
		return false
	}
	return true
}

// Enabled implements session.AdapterGate
func (b *BlueZ) Enabled() bool {
	if b.conn == nil {
		return false
	}
	v, err := b.adapter().GetProperty(adapterIface + ".Powered")
	if err != nil {
		return false
	}
	powered, _ := v.Value().(bool)
	return powered
}

// RequestEnable asks the user and then powers the adapter on.
func (b *BlueZ) RequestEnable(ctx context.Context) (session.EnableResult, error) {
	if b.asker == nil || b.conn == nil {
		return session.EnableUnsupported, nil
	}

	question := fmt.Sprintf("Bluetooth adapter %s is off. Turn it on?", b.adapterID())
	ok, err := b.asker.Ask(ctx, question)
	if err != nil {
		return session.EnableDeclined, err
	}
	if !ok {
		return session.EnableDeclined, nil
	}

	if err := b.adapter().SetProperty(adapterIface+".Powered", true); err != nil {
		return session.EnableDeclined, fmt.Errorf("power on %s: %w", b.adapterID(), err)
	}
	logging.Info("Bluetooth adapter powered on", zap.String("adapter", b.adapterID()))
	return session.EnableGranted, nil
}

func (b *BlueZ) adapterID() string {
	s := string(b.adapterPath)
	return s[strings.LastIndex(s, "/")+1:]
}

// Events implements session.DiscoverySource
func (b *BlueZ) Events() <-chan discovery.DeviceFoundEvent {
	return b.events
}

// Discovering implements session.DiscoverySource
func (b *BlueZ) Discovering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.discovering
}

// Start primes the device cache and calls StartDiscovery on the adapter.
func (b *BlueZ) Start() error {
	if b.conn == nil {
		return ErrNoBus
	}

	if err := b.prime(); err != nil {
		logging.Warn("Failed to read known BlueZ devices", zap.Error(err))
	}

	// Older BlueZ releases reject some filter keys; discovery still works.
	if err := b.adapter().Call(adapterIface+".SetDiscoveryFilter", 0, discoveryFilter()).Err; err != nil {
		logging.Warn("Failed to set BlueZ discovery filter", zap.Error(err))
	}
	if err := b.adapter().Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("StartDiscovery: %w", err)
	}

	b.mu.Lock()
	b.discovering = true
	b.mu.Unlock()
	logging.Debug("BlueZ discovery started", zap.String("adapter", b.adapterID()))
	return nil
}

// discoveryFilter asks for Classic and LE devices in one discovery.
func discoveryFilter() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Transport": dbus.MakeVariant("auto"),
	}
}

// Cancel calls StopDiscovery. It is a no-op when not discovering.
func (b *BlueZ) Cancel() error {
	b.mu.Lock()
	if !b.discovering {
		b.mu.Unlock()
		return nil
	}
	b.discovering = false
	b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	if err := b.adapter().Call(adapterIface+".StopDiscovery", 0).Err; err != nil {
		return fmt.Errorf("StopDiscovery: %w", err)
	}
	logging.Debug("BlueZ discovery stopped", zap.String("adapter", b.adapterID()))
	return nil
}

// Close stops discovery and releases the bus connection.
func (b *BlueZ) Close() error {
	err := b.Cancel()
	if b.conn == nil {
		return err
	}
	b.conn.RemoveSignal(b.signals)
	for _, opts := range b.matchRules() {
		_ = b.conn.RemoveMatchSignal(opts...)
	}
	close(b.done)
	return errors.Join(err, b.conn.Close())
}

// prime loads the properties of devices BlueZ already knows about, so a
// later PropertiesChanged carrying only RSSI can be reported with a name.
func (b *BlueZ) prime() error {
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.conn.Object(bluezService, "/").Call(objManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return fmt.Errorf("GetManagedObjects: %w", call.Err)
	}
	if err := call.Store(&objs); err != nil {
		return fmt.Errorf("decode GetManagedObjects: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for path, ifaces := range objs {
		if props, ok := ifaces[deviceIface]; ok && b.owns(path) {
			b.devices[path] = copyProps(props)
		}
	}
	return nil
}

func (b *BlueZ) listen() {
	for {
		select {
		case <-b.done:
			return
		case sig, ok := <-b.signals:
			if !ok {
				return
			}
			b.handleSignal(sig)
		}
	}
}

// handleSignal folds a D-Bus signal into the device cache and reports a
// sighting when it carries a fresh RSSI reading.
func (b *BlueZ) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	var (
		path  dbus.ObjectPath
		delta map[string]dbus.Variant
	)
	switch sig.Name {
	case objManagerIface + ".InterfacesAdded":
		if len(sig.Body) < 2 {
			return
		}
		path, _ = sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		delta = ifaces[deviceIface]

	case propsIface + ".PropertiesChanged":
		if len(sig.Body) < 2 {
			return
		}
		if iface, _ := sig.Body[0].(string); iface != deviceIface {
			return
		}
		path = sig.Path
		delta, _ = sig.Body[1].(map[string]dbus.Variant)

	default:
		return
	}

	if delta == nil || !b.owns(path) {
		return
	}

	b.mu.Lock()
	props, ok := b.devices[path]
	if !ok {
		props = make(map[string]dbus.Variant)
		b.devices[path] = props
	}
	for k, v := range delta {
		props[k] = v
	}
	_, fresh := delta["RSSI"]
	active := b.discovering
	ev, valid := eventFromProps(path, props)
	b.mu.Unlock()

	if !fresh || !active || !valid {
		return
	}

	select {
	case b.events <- ev:
	default:
		logging.Warn("Dropping BlueZ sighting, event buffer full", zap.String("address", ev.Address))
	}
}

// owns reports whether path is a device under this backend's adapter.
func (b *BlueZ) owns(path dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), string(b.adapterPath)+"/")
}

// eventFromProps builds a sighting from Device1 properties. The address
// falls back to the one encoded in the object path.
func eventFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) (discovery.DeviceFoundEvent, bool) {
	ev := discovery.DeviceFoundEvent{RSSI: signal.Unknown, Source: SourceBlueZ}

	if v, ok := props["Address"]; ok {
		ev.Address, _ = v.Value().(string)
	}
	if ev.Address == "" {
		ev.Address = macFromPath(path)
	}
	if ev.Address == "" {
		return discovery.DeviceFoundEvent{}, false
	}

	if v, ok := props["Name"]; ok {
		ev.Name, _ = v.Value().(string)
	}
	if v, ok := props["RSSI"]; ok {
		if rssi, ok := v.Value().(int16); ok {
			ev.RSSI = int(rssi)
		}
	}
	if v, ok := props["Paired"]; ok {
		ev.Bonded, _ = v.Value().(bool)
	}
	return ev, true
}

// macFromPath extracts the address from .../dev_XX_XX_XX_XX_XX_XX.
func macFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	return strings.ReplaceAll(s[idx+5:], "_", ":")
}

func copyProps(in map[string]dbus.Variant) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
