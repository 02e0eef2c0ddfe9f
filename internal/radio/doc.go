// Package radio provides the concrete gates and discovery sources behind a
// session.Controller.
//
// Four backends are available, selected by the scan.backend config value:
//   - bluez: BlueZ over the system D-Bus. Powers the adapter on after asking,
//     and reports Classic and LE devices with bond state.
//   - ble: BLE advertisements through tinygo.org/x/bluetooth on any platform.
//   - mdns: network services browsed with zeroconf, reported without RSSI.
//   - sim: a replayed device list for demos and tests.
//
// Scan consent is handled by ConsentGate, which asks through an Asker such as
// TerminalAsker or the interactive TUI.
package radio
