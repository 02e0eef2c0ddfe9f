// Package config manages the btscan YAML configuration file.
//
// The file selects the discovery backend, the scan timeout and dedup policy,
// and the optional MQTT, HTTP and simulator settings. It lives in the
// platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/btscan/config.yaml or $HOME/.config/btscan/config.yaml
//   - macOS: $HOME/.config/btscan/config.yaml
//   - Windows: %LOCALAPPDATA%\btscan\config.yaml
//
// A missing file is not an error; Default values are used instead. Values
// present in the file override the defaults field by field.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Scan.Timeout = 30 * time.Second
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// Writes go to a temporary file that is renamed over the target, so a crash
// never leaves a truncated config behind.
package config
