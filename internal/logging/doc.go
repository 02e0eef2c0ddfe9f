// Package logging provides structured logging for btscan.
//
// This package wraps a global zap logger with convenience functions. It is
// silent until initialized, so library code can log freely and tests stay
// quiet.
//
// # Log Levels
//
//   - Debug: Discarded sightings, stale gate answers, backend details
//   - Info: Scan start and end, server and broker lifecycle
//   - Warn: Dropped messages, failed cleanup, broker disconnects
//   - Error: Failed scan attempts
//
// # Session Logging
//
// The controller reports its lifecycle through domain helpers:
//
//	logging.LogStateChange("Idle", "Scanning")
//	logging.LogScanStarted(generation, timeout)
//	logging.LogDeviceAccepted(address, name, rssi, order)
//	logging.LogScanEnded("ReadyWithResults", "Timeout", 4, elapsed)
//
// # Configuration
//
// Commands initialize logging from the --log-level flag, falling back to
// the BTSCAN_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The interactive screen logs to a file instead of the terminal:
//
//	logging.InitializeTo(level, "/home/me/.config/btscan/btscan.log")
package logging
